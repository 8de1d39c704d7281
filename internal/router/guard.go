package router

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Kind tags a guard Decision.
type Kind int

const (
	Allow Kind = iota
	Redirect
	Pending
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case Pending:
		return "pending"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Decision is the outcome of one guard evaluation.
type Decision struct {
	Kind Kind
	// Location is set for Redirect.
	Location string
	// Wait is set for Pending.
	Wait *Future
}

// Future is a decision that becomes known once an identity fetch finishes.
type Future struct {
	done   chan struct{}
	result Decision
}

// Await blocks until the future resolves or ctx ends. Cancelling ctx does not
// abort the underlying fetch.
func (f *Future) Await(ctx context.Context) (Decision, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	}
}

// Session is what the guard needs from the session store.
type Session interface {
	Token(ctx context.Context) (string, bool)
	HasIdentity() bool
	GetInfo(ctx context.Context) error
	Logout(ctx context.Context)
}

// Default navigation constants.
const (
	LoginPath = "/login"
	RootPath  = "/"
)

// DefaultAllowList are the paths reachable without a session.
var DefaultAllowList = []string{"/login", "/register"}

// Guard gates route transitions on the session state.
type Guard struct {
	session        Session
	allow          []*regexp.Regexp
	allowAnonymous bool
	logger         *slog.Logger
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithAllowList replaces the default allow-list. Patterns support "*" within
// one segment and "**" across segments.
func WithAllowList(patterns ...string) GuardOption {
	return func(g *Guard) {
		g.allow = compilePatterns(patterns)
	}
}

// WithAnonymousAccess lets targets outside the allow-list through when no token
// is cached instead of redirecting to the login page.
func WithAnonymousAccess(allow bool) GuardOption {
	return func(g *Guard) { g.allowAnonymous = allow }
}

func NewGuard(s Session, logger *slog.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		session: s,
		allow:   compilePatterns(DefaultAllowList),
		logger:  logger.With("component", "guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check decides what happens to a navigation towards to.
func (g *Guard) Check(ctx context.Context, to Location) Decision {
	if g.allowed(to.Path) {
		if to.Path == LoginPath {
			if _, ok := g.session.Token(ctx); ok {
				return Decision{Kind: Redirect, Location: RootPath}
			}
		}
		return Decision{Kind: Allow}
	}

	if _, ok := g.session.Token(ctx); !ok {
		if g.allowAnonymous {
			g.logger.Debug("anonymous navigation allowed", "path", to.Path)
			return Decision{Kind: Allow}
		}
		return Decision{Kind: Redirect, Location: loginRedirect(LoginPath, to.FullPath())}
	}

	if g.session.HasIdentity() {
		return Decision{Kind: Allow}
	}
	return Decision{Kind: Pending, Wait: g.fetchIdentity(ctx, to)}
}

// fetchIdentity runs GetInfo in the background. The fetch is detached from ctx
// cancellation; its lifetime is bounded by the HTTP client timeout.
func (g *Guard) fetchIdentity(ctx context.Context, to Location) *Future {
	f := &Future{done: make(chan struct{})}
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		if err := g.session.GetInfo(fetchCtx); err != nil {
			g.logger.Warn("identity fetch failed, forcing logout", "path", to.Path, "error", err)
			g.session.Logout(fetchCtx)
			f.result = Decision{Kind: Redirect, Location: loginRedirect(LoginPath, to.FullPath())}
			return
		}
		f.result = Decision{Kind: Allow}
	}()
	return f
}

func (g *Guard) allowed(p string) bool {
	for _, re := range g.allow {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

// compilePatterns turns "/a/*/b/**" style patterns into anchored expressions.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		quoted := regexp.QuoteMeta(p)
		quoted = strings.ReplaceAll(quoted, `\*\*`, `.*`)
		quoted = strings.ReplaceAll(quoted, `\*`, `[^/]*`)
		out = append(out, regexp.MustCompile("^"+quoted+"$"))
	}
	return out
}
