package router

import (
	_ "embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hongminglow/therapy-console/internal/format"
)

//go:embed routes.yaml
var defaultRoutes []byte

// ErrRouteNotFound is returned when no route matches a path.
var ErrRouteNotFound = errors.New("route not found")

// Route is one entry of the route table as written in routes.yaml.
type Route struct {
	Path     string  `yaml:"path"`
	Name     string  `yaml:"name"`
	View     string  `yaml:"view,omitempty"`
	Redirect string  `yaml:"redirect,omitempty"`
	Meta     Meta    `yaml:"meta,omitempty"`
	Children []Route `yaml:"children,omitempty"`
}

// Meta carries presentation hints.
type Meta struct {
	Title  string `yaml:"title,omitempty"`
	Hidden bool   `yaml:"hidden,omitempty"`
	Icon   string `yaml:"icon,omitempty"`
}

// Record is a Route resolved to its absolute path. Records are read-only once built.
type Record struct {
	FullPath string
	Name     string
	View     string
	Redirect string
	Meta     Meta
	Parent   *Record
	Children []*Record
	Depth    int

	segments []string
}

// Match is the result of resolving a path against the table.
type Match struct {
	Record *Record
	Params map[string]string
}

// Table is the flattened, immutable route table.
type Table struct {
	roots   []*Record
	records []*Record
	byName  map[string]*Record
}

// DefaultTable parses the embedded route table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultRoutes)
}

// ParseTable parses a YAML route list.
func ParseTable(data []byte) (*Table, error) {
	var routes []Route
	if err := yaml.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}
	return NewTable(routes)
}

// NewTable flattens routes depth-first. Names and full paths must be unique.
func NewTable(routes []Route) (*Table, error) {
	t := &Table{byName: map[string]*Record{}}
	seen := map[string]bool{}
	var build func(rs []Route, parent *Record) ([]*Record, error)
	build = func(rs []Route, parent *Record) ([]*Record, error) {
		var out []*Record
		for _, r := range rs {
			full := r.Path
			if !strings.HasPrefix(full, "/") {
				if parent == nil {
					return nil, fmt.Errorf("top-level route %q must be absolute", r.Path)
				}
				full = path.Join(parent.FullPath, full)
			}
			full = path.Clean(full)
			rec := &Record{
				FullPath: full,
				Name:     r.Name,
				View:     r.View,
				Redirect: r.Redirect,
				Meta:     r.Meta,
				Parent:   parent,
				segments: splitPath(full),
			}
			if parent != nil {
				rec.Depth = parent.Depth + 1
			}
			if seen[full] {
				return nil, fmt.Errorf("duplicate route path %q", full)
			}
			seen[full] = true
			if r.Name != "" {
				if _, dup := t.byName[r.Name]; dup {
					return nil, fmt.Errorf("duplicate route name %q", r.Name)
				}
				t.byName[r.Name] = rec
			}
			children, err := build(r.Children, rec)
			if err != nil {
				return nil, err
			}
			rec.Children = children
			out = append(out, rec)
		}
		return out, nil
	}
	roots, err := build(routes, nil)
	if err != nil {
		return nil, err
	}
	t.roots = roots
	t.records = format.FlattenTree(roots, func(r *Record) []*Record { return r.Children })
	return t, nil
}

// Menu lists the titled pages under the root layout, depth-first.
func (t *Table) Menu() []*Record {
	var out []*Record
	for _, root := range t.roots {
		if root.FullPath != RootPath {
			continue
		}
		for _, rec := range format.FlattenTree(root.Children, func(r *Record) []*Record { return r.Children }) {
			if rec.Meta.Title != "" {
				out = append(out, rec)
			}
		}
	}
	return out
}

// Match resolves p to the most specific record. Static segments beat :params.
func (t *Table) Match(p string) (Match, bool) {
	segs := splitPath(path.Clean("/" + p))
	var (
		best       *Record
		bestParams map[string]string
		bestStatic = -1
	)
	for _, rec := range t.records {
		params, static, ok := rec.match(segs)
		if ok && static > bestStatic {
			best, bestParams, bestStatic = rec, params, static
		}
	}
	if best == nil {
		return Match{}, false
	}
	return Match{Record: best, Params: bestParams}, true
}

// ByName looks up a record by route name.
func (t *Table) ByName(name string) (*Record, bool) {
	rec, ok := t.byName[name]
	return rec, ok
}

// Records returns the flattened table in declaration order.
func (t *Table) Records() []*Record {
	out := make([]*Record, len(t.records))
	copy(out, t.records)
	return out
}

// Breadcrumb lists the titles from the outermost route down to rec.
func (rec *Record) Breadcrumb() []string {
	var titles []string
	for r := rec; r != nil; r = r.Parent {
		if r.Meta.Title != "" {
			titles = append([]string{r.Meta.Title}, titles...)
		}
	}
	return titles
}

func (rec *Record) match(segs []string) (map[string]string, int, bool) {
	if len(segs) != len(rec.segments) {
		return nil, 0, false
	}
	var params map[string]string
	static := 0
	for i, s := range rec.segments {
		if name, ok := strings.CutPrefix(s, ":"); ok {
			if params == nil {
				params = map[string]string{}
			}
			params[name] = segs[i]
			continue
		}
		if s != segs[i] {
			return nil, 0, false
		}
		static++
	}
	return params, static, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
