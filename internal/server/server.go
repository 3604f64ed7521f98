package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/deepwander/deepwander/config"
	"github.com/deepwander/deepwander/internal/graph"
	"github.com/deepwander/deepwander/internal/media"
	"github.com/deepwander/deepwander/internal/store"
	"github.com/deepwander/deepwander/internal/stream"
	"github.com/deepwander/deepwander/internal/tts"
)

// Run wires every dependency and serves the API until the listener stops.
func Run(cfg *config.Config, addr string) error {
	e := newEcho()

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		log.Printf("migrate: %v", err)
	}

	ctx := context.Background()
	st, err := store.New(ctx, dsn)
	if err != nil {
		return err
	}

	if cfg.Storage.Redis.Host == "" {
		return fmt.Errorf("redis not configured (storage.redis.host)")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Storage.Redis.Addr(),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
	}
	checkpoints := graph.NewThreadCheckpoints(rdb, 0)

	llm, err := graph.NewLLMClient(cfg.LLM)
	if err != nil {
		return err
	}
	agent := graph.NewAgentGraph(llm, checkpoints, nil)

	secret, err := cfg.JWTSecret()
	if err != nil {
		return err
	}

	sink := stream.NewStoreSink(st, nil)
	driver := stream.NewDriver(agent, sink, nil)

	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: secret}
	auth.Register(api.Group("/auth"))

	NewChatHandler(driver, sink, cfg.Workflow, nil).Register(api)

	reports := &ReportsHandler{Store: st}
	reports.Register(api.Group("/reports"), secret)

	ttsClient, err := tts.New(cfg.TTS)
	if err != nil && err != tts.ErrNotConfigured {
		return err
	}
	(&TTSHandler{Client: ttsClient}).Register(api)

	podcast := media.NewPodcastGenerator(llm, ttsClient, nil)
	ppt := media.NewPPTGenerator(llm)
	prose := media.NewProseWriter(llm)
	NewGenerateHandler(st, podcast, ppt, prose, nil).Register(api)

	(&MCPHandler{}).Register(api)

	if addr == "" {
		addr = cfg.Server.Listen
	}
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with recovery, CORS and the unified JSON
// error envelope.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))
	return e
}
