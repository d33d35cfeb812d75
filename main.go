package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (json, toml or yaml)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to a static client directory (optional)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		// logger not configured yet
		boot := NewLogger("error", "console", os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log := NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	metrics, err := NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("metrics")
	}

	var (
		db        *DB
		analytics *Analytics
	)
	if cfg.DBPath != "" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("database")
		}
		defer db.Close()
		analytics = NewAnalytics(log, db)
		defer analytics.Stop()
	} else {
		log.Warn().Msg("no database configured, runs and accounts are not persisted")
	}

	hub := NewHub(log, cfg, db, analytics, metrics)
	go hub.Run()

	mux := SetupRoutes(hub, *clientDir)
	server := &http.Server{Addr: cfg.Addr, Handler: mux}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("theme", cfg.Themes.Start).Int("tickRate", cfg.TickRate).Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	<-stop
	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	hub.Shutdown()
}
