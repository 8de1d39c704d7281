// Package router resolves console navigation: the route table, the
// authentication guard and the dispatch loop tying them together.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrTooManyRedirects is returned when a navigation keeps bouncing between locations.
var ErrTooManyRedirects = errors.New("too many redirects")

// DefaultMaxRedirects bounds the number of hops per navigation.
const DefaultMaxRedirects = 10

// Resolution is where a navigation ended up.
type Resolution struct {
	Location Location
	Route    *Record
	Params   map[string]string
	// Redirects lists every intermediate location, in order.
	Redirects []string
}

// Router evaluates navigations against a table and a guard.
type Router struct {
	table        *Table
	guard        *Guard
	logger       *slog.Logger
	maxRedirects int
}

func New(table *Table, guard *Guard, logger *slog.Logger) *Router {
	return &Router{
		table:        table,
		guard:        guard,
		logger:       logger.With("component", "router"),
		maxRedirects: DefaultMaxRedirects,
	}
}

// Table exposes the route table.
func (r *Router) Table() *Table { return r.table }

// Navigate runs one navigation attempt to target.
//
// Route-level redirects are applied before the guard runs. Pending guard
// decisions are awaited; redirect decisions restart the loop at the new location.
func (r *Router) Navigate(ctx context.Context, target string) (Resolution, error) {
	var trail []string
	current := target
	for hop := 0; ; hop++ {
		if hop > r.maxRedirects {
			return Resolution{}, fmt.Errorf("%w: %v", ErrTooManyRedirects, trail)
		}
		loc, err := ParseLocation(current)
		if err != nil {
			return Resolution{}, err
		}

		m, found := r.table.Match(loc.Path)
		if found && m.Record.Redirect != "" {
			r.logger.Debug("route redirect", "from", loc.Path, "to", m.Record.Redirect)
			current = m.Record.Redirect
			trail = append(trail, current)
			continue
		}

		d := r.guard.Check(ctx, loc)
		if d.Kind == Pending {
			r.logger.Debug("navigation pending identity", "path", loc.Path)
			if d, err = d.Wait.Await(ctx); err != nil {
				return Resolution{}, fmt.Errorf("navigate %s: %w", loc.Path, err)
			}
		}

		switch d.Kind {
		case Allow:
			if !found {
				return Resolution{}, fmt.Errorf("%w: %s", ErrRouteNotFound, loc.Path)
			}
			r.logger.Debug("navigation allowed", "path", loc.FullPath(), "route", m.Record.Name)
			return Resolution{Location: loc, Route: m.Record, Params: m.Params, Redirects: trail}, nil
		case Redirect:
			r.logger.Debug("guard redirect", "from", loc.FullPath(), "to", d.Location)
			current = d.Location
			trail = append(trail, current)
		default:
			return Resolution{}, fmt.Errorf("navigate %s: unexpected decision %s", loc.Path, d.Kind)
		}
	}
}
