package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/events"
	"github.com/devnovate/blog/routes"
	"github.com/devnovate/blog/search"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/storage"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	if cfg.JWTSecret == "" {
		utils.Sugar.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("failed to open %s store: %v", cfg.DBDriver, err)
	}

	opts := []services.Option{services.WithLogger(utils.Logger.Named("blogs"))}

	var publisher *events.RabbitMQPublisher
	if cfg.RabbitMQURL != "" {
		publisher, err = events.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			utils.Logger.Warn("moderation events disabled", zap.Error(err))
		} else {
			opts = append(opts, services.WithPublisher(publisher))
		}
	}

	if cfg.ESAddr != "" {
		es, err := search.New(cfg.ESAddr, cfg.ESIndex)
		if err == nil {
			err = es.EnsureIndex(ctx)
		}
		if err != nil {
			utils.Logger.Warn("search index disabled", zap.Error(err))
		} else {
			opts = append(opts, services.WithIndexer(es))
		}
	}

	uploads, err := storage.Open(ctx, cfg)
	if err != nil {
		utils.Logger.Warn("uploads disabled", zap.Error(err))
	}

	blogs := services.NewBlogService(st, opts...)
	r := routes.SetupRouter(routes.Deps{Store: st, Blogs: blogs, Uploads: uploads})

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func(context.Context) error {
		if publisher != nil {
			return publisher.Close()
		}
		return nil
	})
	srv.OnShutdown(func(context.Context) error { return st.Close() })

	utils.Sugar.Infof("Starting server on port %s (graceful, store=%s)", cfg.AppPort, cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
