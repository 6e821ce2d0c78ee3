// Command server runs the FeedForward API: account management with email
// verification and password reset, and the social feed of posts, comments,
// likes, and follows.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/feedforward/feedforward/modules/auth"
	"github.com/feedforward/feedforward/modules/feed"
	"github.com/feedforward/feedforward/pkg/config"
	"github.com/feedforward/feedforward/pkg/cookie"
	"github.com/feedforward/feedforward/pkg/email"
	"github.com/feedforward/feedforward/pkg/httpserver"
	"github.com/feedforward/feedforward/pkg/logger"
	"github.com/feedforward/feedforward/pkg/mongo"
	"github.com/feedforward/feedforward/pkg/ratelimit"
	"github.com/feedforward/feedforward/pkg/redis"
	"github.com/feedforward/feedforward/pkg/requestid"
	"github.com/feedforward/feedforward/pkg/respond"
	"github.com/feedforward/feedforward/pkg/storage"
	"github.com/feedforward/feedforward/pkg/token"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"APP_SERVICE_NAME" envDefault:"feedforward"`
}

func main() {
	var (
		appCfg    appConfig
		serverCfg httpserver.Config
		mongoCfg  mongo.Config
		redisCfg  redis.Config
		authCfg   auth.Config
		emailCfg  email.Config
		storeCfg  storage.Config
		limitCfg  ratelimit.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&serverCfg)
	config.MustLoad(&mongoCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&authCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&storeCfg)
	config.MustLoad(&limitCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, appCfg.Service),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()

	db, err := mongo.NewWithDatabase(ctx, mongoCfg, mongoCfg.Database)
	if err != nil {
		log.Error("failed to connect to mongodb", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Error("failed to connect to redis", logger.Error(err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	users := auth.NewMongoUserStore(db)
	sessions := auth.NewMongoSessionStore(db)
	posts := feed.NewMongoPostStore(db)
	comments := feed.NewMongoCommentStore(db)
	likes := feed.NewMongoLikeStore(db)
	follows := feed.NewMongoFollowStore(db)

	for name, ensure := range map[string]func(context.Context) error{
		"users":    users.EnsureIndexes,
		"sessions": sessions.EnsureIndexes,
		"posts":    posts.EnsureIndexes,
		"comments": comments.EnsureIndexes,
		"likes":    likes.EnsureIndexes,
		"follows":  follows.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Error("failed to ensure indexes", slog.String("collection", name), logger.Error(err))
			os.Exit(1)
		}
	}

	tokens, err := token.New(authCfg.TokenSecret)
	if err != nil {
		log.Error("invalid token secret", logger.Error(err))
		os.Exit(1)
	}

	mailer := newMailer(emailCfg, log)
	media := newStorage(ctx, storeCfg, log)

	authSvc := auth.NewService(authCfg, users, sessions, tokens, mailer, auth.WithLogger(log))
	feedSvc := feed.NewService(posts, comments, likes, follows, users, feed.WithLogger(log))

	cookies := cookie.New(cookie.WithSecure(authCfg.SecureCookies))
	authHandler := auth.NewHandler(authSvc, cookies, authCfg, log)
	feedHandler := feed.NewHandler(feedSvc, authSvc, media, log)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.NotFound(respond.NotFoundHandler())
	r.MethodNotAllowed(respond.MethodNotAllowedHandler())

	r.Get("/healthz", httpserver.HealthCheckHandler(log,
		mongo.Healthcheck(db.Client()),
		redis.Healthcheck(redisClient),
	))

	if storeCfg.Driver == "local" {
		prefix := "/" + strings.Trim(storeCfg.LocalBaseURL, "/") + "/"
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(storeCfg.LocalDir)))
		r.Get(prefix+"*", fs.ServeHTTP)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if limitCfg.Enabled {
			limiter, err := ratelimit.NewFixedWindow(
				ratelimit.NewRedisStore(redisClient, limitCfg.Prefix),
				limitCfg.Requests,
				limitCfg.Window,
			)
			if err != nil {
				log.Error("invalid rate limit configuration", logger.Error(err))
				os.Exit(1)
			}
			r.Use(ratelimit.Middleware(limiter, ratelimit.ByClientIP))
		}

		r.Route("/auth", authHandler.Routes)

		r.Group(func(r chi.Router) {
			r.Use(auth.Gate(authSvc, cookies, authCfg.CookieName))
			feedHandler.Routes(r)
		})
	})

	srv := httpserver.NewFromConfig(serverCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("server starting", slog.String("addr", serverCfg.Addr), slog.String("env", appCfg.Env))
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			l.Info("server stopped")
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// newMailer picks Postmark when a server token is configured, otherwise the
// file-based development sender.
func newMailer(cfg email.Config, log *slog.Logger) email.Sender {
	if cfg.PostmarkServerToken != "" {
		mailer, err := email.NewPostmarkClient(cfg)
		if err != nil {
			log.Error("failed to configure postmark", logger.Error(err))
			os.Exit(1)
		}
		return mailer
	}
	log.Warn("postmark not configured, writing emails to disk", slog.String("dir", cfg.DevOutputDir))
	return email.NewDevSender(cfg.DevOutputDir)
}

// newStorage picks the media backend by the configured driver.
func newStorage(ctx context.Context, cfg storage.Config, log *slog.Logger) storage.Storage {
	switch cfg.Driver {
	case "s3":
		s3, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			log.Error("failed to configure s3 storage", logger.Error(err))
			os.Exit(1)
		}
		return s3
	case "local":
		local, err := storage.NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
		if err != nil {
			log.Error("failed to configure local storage", logger.Error(err))
			os.Exit(1)
		}
		return local
	default:
		log.Error("unknown storage driver", slog.String("driver", cfg.Driver))
		os.Exit(1)
		return nil
	}
}
