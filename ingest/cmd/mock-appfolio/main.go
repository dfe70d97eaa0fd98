// Command mock-appfolio serves a fake AppFolio API for local development
// and end-to-end tests of the ingest service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/ingest/pkg/appfoliomock"
)

func main() {
	addr := flag.String("addr", appfoliomock.DefaultAddr, "listen address")
	apiKey := flag.String("api-key", envOr("APPFOLIO_API_KEY", appfoliomock.DefaultAPIKey), "accepted X-API-KEY value")
	extra := flag.Int("extra", 0, "number of generated portfolios served next to the default fixtures")
	seed := flag.Int64("seed", 42, "seed for generated portfolios")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.New(logging.ParseLevel(*logLevel), "text").With(logging.Service("mock-appfolio"))

	fixtures := appfoliomock.DefaultFixtures()
	if *extra > 0 {
		fixtures = fixtures.Merge(appfoliomock.Generate(*seed, *extra))
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           appfoliomock.NewServer(*apiKey, fixtures, logger.Logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("mock AppFolio API listening", slog.String("addr", *addr), slog.Any("counts", fixtures.Count()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", logging.Error(err))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
