package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"pricewatch/internal/config"
	"pricewatch/internal/fetch"
	"pricewatch/internal/http/handlers"
	applog "pricewatch/internal/log"
	"pricewatch/internal/repos"
	"pricewatch/internal/scheduler"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	fetcher := fetch.New(cfg)
	deps := handlers.NewDeps(db, cfg, fetcher)

	// ---------- Scheduled jobs ----------
	sched := scheduler.New()
	if err := sched.Register("collector", cfg.CollectCron, func(ctx context.Context) error {
		_, err := deps.Collector.Run(ctx)
		return err
	}); err != nil {
		log.Fatal(err)
	}
	if err := sched.Register("prune", cfg.PruneCron, func(ctx context.Context) error {
		n, err := deps.History.Prune(cfg.HistoryRetentionDays)
		if err != nil {
			return err
		}
		m, err := deps.Snapshots.Prune(cfg.SnapshotRetentionDays)
		if err != nil {
			return err
		}
		applog.Job("prune", "prune.done", map[string]any{"price_rows": n, "comparison_rows": m})
		return nil
	}); err != nil {
		log.Fatal(err)
	}
	sched.Start()
	defer sched.Stop()

	// ---------- App & middlewares ----------
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	// Live-fetch endpoints block on 1-2 outbound requests; keep them on a
	// tighter inbound budget.
	fetchLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|fetch"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.fetch.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	})

	// ---------- Routes ----------
	api := app.Group("/api/v1")

	api.Post("/products", fetchLimiter, deps.ProductHandler.Register)
	api.Get("/products/:id/history", deps.ProductHandler.History)
	api.Get("/products/:id/average", deps.ProductHandler.Average)

	api.Post("/groups", deps.GroupHandler.Create)
	api.Post("/groups/:id/members", fetchLimiter, deps.GroupHandler.AddMember)

	api.Get("/compare/:id", deps.CompareHandler.Get)
	api.Get("/compare/:id/history", deps.CompareHandler.History)
	api.Post("/compare/quick", fetchLimiter, deps.CompareHandler.Quick)

	api.Post("/jobs/collect", deps.JobHandler.Collect)
	api.Get("/users/:id/stats", deps.StatsHandler.User)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
