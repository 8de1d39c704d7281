package router

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Location is a navigation target split into path and query.
type Location struct {
	Path     string
	RawQuery string
}

// ParseLocation parses targets such as "/device?page=2". Relative paths are rooted at "/".
func ParseLocation(target string) (Location, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Location{}, fmt.Errorf("parse location %q: %w", target, err)
	}
	if u.IsAbs() || u.Host != "" {
		return Location{}, fmt.Errorf("location %q must be an in-app path", target)
	}
	p := path.Clean("/" + u.Path)
	return Location{Path: p, RawQuery: u.RawQuery}, nil
}

// FullPath is the path plus query, as used for return targets.
func (l Location) FullPath() string {
	if l.RawQuery == "" {
		return l.Path
	}
	return l.Path + "?" + l.RawQuery
}

// Query returns the parsed query values.
func (l Location) Query() url.Values {
	q, _ := url.ParseQuery(l.RawQuery)
	return q
}

// loginRedirect builds the login location carrying the original target as ?redirect=.
// Slashes stay readable the way browser routers render them.
func loginRedirect(loginPath, fullPath string) string {
	v := url.QueryEscape(fullPath)
	v = strings.ReplaceAll(v, "%2F", "/")
	return loginPath + "?redirect=" + v
}
