// Package guard implements the navigation guard pipeline that runs before a
// route is entered. Guards run in a fixed order; the first one that asks for
// a redirect wins and the rest never run.
package guard

import (
	"context"
	"log/slog"
	"net/url"
)

// Meta carries the per-route declarations the guards act on.
type Meta struct {
	RequiresAuth bool
	Roles        []string
	Title        string
	Preload      bool
}

// Route is the navigation target or origin.
type Route struct {
	Path     string
	FullPath string
	Meta     Meta
}

// Position is a scroll offset.
type Position struct {
	X int
	Y int
}

// Navigation is one routing attempt, passed through every guard.
type Navigation struct {
	To            Route
	From          Route
	SavedPosition *Position
}

// Decision is a guard's verdict: proceed, or redirect elsewhere.
type Decision struct {
	redirect bool
	Path     string
	Query    url.Values
}

// Proceed lets the navigation continue.
func Proceed() Decision {
	return Decision{}
}

// RedirectTo aborts the navigation in favor of another path.
func RedirectTo(path string, query url.Values) Decision {
	return Decision{redirect: true, Path: path, Query: query}
}

// Redirect reports whether the decision aborts the navigation.
func (d Decision) Redirect() bool {
	return d.redirect
}

// Target renders the redirect destination including its query string.
func (d Decision) Target() string {
	if len(d.Query) == 0 {
		return d.Path
	}
	return d.Path + "?" + d.Query.Encode()
}

// Guard inspects a navigation and decides whether it may continue.
type Guard func(ctx context.Context, nav *Navigation) Decision

// Pipeline runs guards in order.
type Pipeline struct {
	guards []Guard
	log    *slog.Logger
}

func NewPipeline(logger *slog.Logger, guards ...Guard) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{guards: guards, log: logger}
}

// Run folds the navigation through the guards. The first redirect
// short-circuits the rest.
func (p *Pipeline) Run(ctx context.Context, nav *Navigation) Decision {
	for _, g := range p.guards {
		if d := g(ctx, nav); d.Redirect() {
			p.log.Info("navigation redirected",
				"from", nav.To.FullPath, "to", d.Target())
			return d
		}
	}
	return Proceed()
}
