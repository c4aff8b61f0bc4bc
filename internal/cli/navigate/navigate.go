// Package navigate provides the navigation collaborator for signals-cli.
//
// The session layer only ever asks for one thing: go to the login view.
// What that means depends on the front end; the one-shot CLI prints a
// hint, the REPL switches its prompt to the login view.
package navigate

import "sync"

// Routes known to the CLI front ends.
const (
	RouteHome  = "home"
	RouteLogin = "login"
)

// Navigator moves the user to the login view. ToLogin must not block.
type Navigator interface {
	ToLogin()
}

// Func adapts a plain function to Navigator.
type Func func()

// ToLogin calls f.
func (f Func) ToLogin() { f() }

// Router tracks the current view and notifies listeners on change.
type Router struct {
	mu        sync.Mutex
	current   string
	listeners []func(route string)
}

// NewRouter creates a router positioned at initial.
func NewRouter(initial string) *Router {
	return &Router{current: initial}
}

// Current returns the current route.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnChange registers a listener called after every navigation,
// including navigation to the route already current.
func (r *Router) OnChange(fn func(route string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Navigate moves to route and notifies listeners.
func (r *Router) Navigate(route string) {
	r.mu.Lock()
	r.current = route
	listeners := make([]func(string), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(route)
	}
}

// ToLogin implements Navigator.
func (r *Router) ToLogin() {
	r.Navigate(RouteLogin)
}
