package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"shici/internal/api"
	"shici/internal/cache"
	"shici/internal/config"
	"shici/internal/guard"
	"shici/internal/logging"
	"shici/internal/store"
	"shici/internal/supabase"
	"shici/pkg/domain"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config file")
	flag.Parse()

	// Local overrides; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.InitLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.FileConfig, logger *slog.Logger) error {
	kv, err := buildCache(cfg, logger)
	if err != nil {
		return err
	}

	var users *store.UserStore
	userSvc, poemSvc, err := buildServices(cfg, logger, func() *store.UserStore { return users })
	if err != nil {
		return err
	}

	users = store.NewUserStore(userSvc, kv, logger)
	users.Initialize()
	poems := store.NewPoemStore(poemSvc, users, logger)

	ctx := context.Background()
	pipeline := guard.Default(users, cfg.AppTitle,
		func(title string) { logger.Info("title", "value", title) },
		func(pos guard.Position) error {
			logger.Debug("scroll", "x", pos.X, "y", pos.Y)
			return nil
		},
		func(ctx context.Context, r guard.Route) error {
			return poems.FetchPoems(ctx, domain.PoemQuery{Page: 1})
		},
		func(_ context.Context, path string) error {
			logger.Debug("page view", "path", path)
			return nil
		},
		logger,
	)

	nav := &guard.Navigation{To: guard.Route{
		Path:     "/",
		FullPath: "/",
		Meta:     guard.Meta{Title: "首页", Preload: true},
	}}
	if d := pipeline.Run(ctx, nav); d.Redirect() {
		logger.Info("redirected", "to", d.Target())
		return nil
	}

	logger.Info("catalog loaded",
		"poems", len(poems.Displayed()),
		"pagination", poems.Pagination(),
		"loggedIn", users.IsLoggedIn(),
	)
	if users.IsLoggedIn() {
		if users.FetchUserInfo(ctx) {
			logger.Info("welcome back", "user", users.DisplayName(), "level", users.Level())
		}
	}
	return nil
}

func buildCache(cfg config.FileConfig, logger *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, "shici:", logger), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(logger), nil
	default:
		return cache.NewFileCache(cfg.CacheDir, logger)
	}
}

// buildServices wires one backend path. The REST client pulls its bearer
// token through a late-bound accessor because the user store that owns the
// session is constructed after the client.
func buildServices(cfg config.FileConfig, logger *slog.Logger, users func() *store.UserStore) (store.UserService, store.PoemService, error) {
	if cfg.Backend == config.BackendREST {
		client, err := api.New(api.Config{
			BaseURL:       cfg.APIBaseURL,
			Timeout:       cfg.APITimeout(),
			MaxRetries:    cfg.APIMaxRetries,
			RetryDelay:    cfg.APIRetryDelay(),
			RatePerSecond: cfg.APIRateLimitPerSecond,
			Tokens: api.TokenSourceFunc(func() string {
				if s := users(); s != nil {
					return s.Session().Token
				}
				return ""
			}),
			OnUnauthorized: func() {
				if s := users(); s != nil {
					s.Logout(context.Background())
				}
			},
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}

	client, err := supabase.New(supabase.Config{
		URL:     cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
		Timeout: cfg.APITimeout(),
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}
