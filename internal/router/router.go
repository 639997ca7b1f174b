// Package router declares the dashboard's named routes and the guard that
// keeps protected routes behind a session.
package router

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
)

// Name identifies a route.
type Name string

const (
	Dashboard       Name = "Dashboard"
	Indicators      Name = "Indicators"
	IndicatorDetail Name = "IndicatorDetail"
	Analysis        Name = "Analysis"
	Alerts          Name = "Alerts"
	Decision        Name = "Decision"
	Login           Name = "Login"
)

// Route is a named path template. Segments starting with ':' are parameters.
type Route struct {
	Name Name
	Path string
}

// Routes lists every route of the dashboard.
var Routes = []Route{
	{Name: Dashboard, Path: "/"},
	{Name: Indicators, Path: "/indicators"},
	{Name: IndicatorDetail, Path: "/indicators/:code"},
	{Name: Analysis, Path: "/analysis"},
	{Name: Alerts, Path: "/alerts"},
	{Name: Decision, Path: "/decision"},
	{Name: Login, Path: "/login"},
}

// Lookup returns the route called name.
func Lookup(name Name) (Route, bool) {
	for _, r := range Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Match resolves a concrete path to its route and parameters.
func Match(path string) (Route, map[string]string, bool) {
	segs := split(path)
	for _, r := range Routes {
		tmpl := split(r.Path)
		if len(tmpl) != len(segs) {
			continue
		}
		params := map[string]string{}
		ok := true
		for i, t := range tmpl {
			switch {
			case strings.HasPrefix(t, ":"):
				params[t[1:]] = segs[i]
			case t != segs[i]:
				ok = false
			}
			if !ok {
				break
			}
		}
		if ok {
			return r, params, true
		}
	}
	return Route{}, nil, false
}

// Build renders the path of r with params substituted.
func (r Route) Build(params map[string]string) (string, error) {
	segs := split(r.Path)
	for i, s := range segs {
		if !strings.HasPrefix(s, ":") {
			continue
		}
		v, ok := params[s[1:]]
		if !ok || v == "" {
			return "", fmt.Errorf("route %s: missing parameter %q", r.Name, s[1:])
		}
		segs[i] = v
	}
	return "/" + strings.Join(segs, "/"), nil
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Decision is the outcome of Guard.
type Decision struct {
	Allow    bool
	Redirect Name
}

// Guard decides whether a navigation to dest may proceed. Every route except
// Login requires a token; without one the navigation is sent to Login.
func Guard(dest Name, hasToken bool) Decision {
	if dest != Login && !hasToken {
		return Decision{Redirect: Login}
	}
	return Decision{Allow: true}
}

// SessionState is the only input of the guard.
type SessionState interface {
	IsLoggedIn() bool
}

// Navigator tracks the current route of one UI and runs the guard before
// every change.
type Navigator struct {
	mu      sync.Mutex
	session SessionState
	current Route
	params  map[string]string
}

// NewNavigator starts on the Dashboard, guarded like any other navigation.
func NewNavigator(session SessionState) *Navigator {
	n := &Navigator{session: session}
	_, _ = n.Navigate(Dashboard, nil)
	return n
}

// Navigate moves to name, or to Login when the guard redirects. It returns
// the route actually entered.
func (n *Navigator) Navigate(name Name, params map[string]string) (Route, error) {
	dest, ok := Lookup(name)
	if !ok {
		return Route{}, fmt.Errorf("unknown route %q", name)
	}
	if _, err := dest.Build(params); err != nil {
		return Route{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if d := Guard(name, n.session.IsLoggedIn()); !d.Allow {
		dest, _ = Lookup(d.Redirect)
		params = nil
	}
	n.current = dest
	n.params = params
	return dest, nil
}

// NavigatePath resolves path and navigates to it.
func (n *Navigator) NavigatePath(path string) (Route, error) {
	r, params, ok := Match(path)
	if !ok {
		return Route{}, fmt.Errorf("no route for %q", path)
	}
	return n.Navigate(r.Name, params)
}

// Current returns the route last entered and its parameters.
func (n *Navigator) Current() (Route, map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	params := make(map[string]string, len(n.params))
	for k, v := range n.params {
		params[k] = v
	}
	return n.current, params
}

// RequireSession applies the guard to an echo route: requests without a
// session are redirected to the login path before the handler runs.
func RequireSession(session SessionState) echo.MiddlewareFunc {
	login, _ := Lookup(Login)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d := Guard(nameOf(c), session.IsLoggedIn()); !d.Allow {
				return c.Redirect(http.StatusFound, login.Path)
			}
			return next(c)
		}
	}
}

// nameOf maps the echo route template back to a route name. Unknown paths
// are treated as protected.
func nameOf(c echo.Context) Name {
	for _, r := range Routes {
		if r.Path == c.Path() {
			return r.Name
		}
	}
	return ""
}
