// Command communitylearn-server serves the CommunityLearn pages behind the
// side-channel route gate, the session and registration API that issues the
// side-channel cookies, and the admin moderation API.
//
// Profiles live in Postgres when DATABASE_URL is set and in Redis otherwise.
// Accounts and login throttling always use Redis.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/communitylearn/learnauth"
	"github.com/communitylearn/learnauth/internal/config"
	"github.com/communitylearn/learnauth/internal/server"
	"github.com/communitylearn/learnauth/profile"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}

	var profiles profile.Directory
	if cfg.DatabaseURL != "" {
		pool, err := profile.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connection failed: %v", err)
		}
		defer pool.Close()
		store := profile.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatalf("db schema failed: %v", err)
		}
		profiles = store
	} else {
		profiles = profile.NewRedisStore(rdb, cfg.RedisPrefix)
	}

	deps := server.Deps{Redis: rdb, Profiles: profiles}
	if cfg.AuditEnabled {
		sinks := learnauth.MultiSink{learnauth.NewJSONWriterSink(os.Stdout)}
		if cfg.AuditStream != "" {
			sinks = append(sinks, learnauth.NewStreamSink(rdb, cfg.AuditStream, cfg.AuditStreamMaxLen))
		}
		deps.AuditSink = sinks
	}

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		log.Fatalf("server init failed: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("communitylearn listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	srv.Close()
}
