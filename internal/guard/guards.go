package guard

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
)

// UserState is the slice of the user store the guards need.
type UserState interface {
	IsLoggedIn() bool
	Level() int
}

// Auth sends anonymous users of protected routes to the login page, carrying
// the intended destination so login can bounce them back.
func Auth(users UserState) Guard {
	return func(_ context.Context, nav *Navigation) Decision {
		if !nav.To.Meta.RequiresAuth || users.IsLoggedIn() {
			return Proceed()
		}
		query := url.Values{}
		query.Set("redirect", nav.To.FullPath)
		return RedirectTo("/login", query)
	}
}

// Role checks the user's level against the route's allowed roles. Levels are
// compared as strings because route declarations mix named roles and numeric
// levels.
func Role(users UserState) Guard {
	return func(_ context.Context, nav *Navigation) Decision {
		roles := nav.To.Meta.Roles
		if len(roles) == 0 {
			return Proceed()
		}
		// An unset level reads as the base level 1.
		level := users.Level()
		if level == 0 {
			level = 1
		}
		if slices.Contains(roles, strconv.Itoa(level)) {
			return Proceed()
		}
		return RedirectTo("/403", nil)
	}
}

// Title sets the window title from the route meta. It never blocks a
// navigation.
func Title(appTitle string, set func(string)) Guard {
	return func(_ context.Context, nav *Navigation) Decision {
		if t := nav.To.Meta.Title; t != "" {
			set(t + " - " + appTitle)
		} else {
			set(appTitle)
		}
		return Proceed()
	}
}

// Scroll restores the saved position, or scrolls to the top. Restore failures
// are swallowed; scrolling never blocks a navigation.
func Scroll(restore func(Position) error, logger *slog.Logger) Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, nav *Navigation) Decision {
		pos := Position{}
		if nav.SavedPosition != nil {
			pos = *nav.SavedPosition
		}
		if err := restore(pos); err != nil {
			logger.Warn("scroll restore failed", "err", err)
		}
		return Proceed()
	}
}

// CacheHook is a placeholder for per-route cache warming. It currently does
// nothing and always proceeds.
func CacheHook() Guard {
	return func(_ context.Context, _ *Navigation) Decision {
		return Proceed()
	}
}

// Preload kicks off data loading for routes that declare it. A failed preload
// is logged and the navigation proceeds; the view loads its own data later.
func Preload(load func(context.Context, Route) error, logger *slog.Logger) Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, nav *Navigation) Decision {
		if !nav.To.Meta.Preload {
			return Proceed()
		}
		if err := load(ctx, nav.To); err != nil {
			logger.Warn("route preload failed", "path", nav.To.Path, "err", err)
		}
		return Proceed()
	}
}

// Analytics pings the page view. Purely observational: errors are swallowed.
func Analytics(ping func(context.Context, string) error, logger *slog.Logger) Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, nav *Navigation) Decision {
		if err := ping(ctx, nav.To.FullPath); err != nil {
			logger.Debug("analytics ping failed", "err", err)
		}
		return Proceed()
	}
}

// Default assembles the standard pipeline in its fixed order.
func Default(users UserState, appTitle string, setTitle func(string), restore func(Position) error, preload func(context.Context, Route) error, ping func(context.Context, string) error, logger *slog.Logger) *Pipeline {
	return NewPipeline(logger,
		Auth(users),
		Role(users),
		Title(appTitle, setTitle),
		Scroll(restore, logger),
		CacheHook(),
		Preload(preload, logger),
		Analytics(ping, logger),
	)
}
