package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wykstemteam/wykoj"
	"github.com/wykstemteam/wykoj/api"
	"github.com/wykstemteam/wykoj/base"
	"github.com/wykstemteam/wykoj/grader"
	"github.com/wykstemteam/wykoj/internal/config"
	"golang.org/x/sync/errgroup"
)

var confPath = flag.String("config", "./config.toml", "Config path")

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Could not load .env: %v\n", err)
	}

	if err := config.Load(*confPath); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load config: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(wykoj.GetSlogHandler(config.C.Common.Debug, os.Stdout)))

	if err := run(); err != nil {
		slog.Error("Fatal error", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	slog.Info("Starting wykoj", slog.String("version", wykoj.Version))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.C.Common.LogDir != "" {
		if err := os.MkdirAll(config.C.Common.LogDir, 0755); err != nil {
			return fmt.Errorf("could not create log dir: %w", err)
		}
	}

	b, err := base.InitializeBaseAPI(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	grd := grader.NewHandler(ctx, b, b.Judge())

	server := &http.Server{
		Addr:    net.JoinHostPort(config.C.Common.ListenHost, strconv.Itoa(config.C.Common.ListenPort)),
		Handler: api.New(b, grd).Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(grd.Start)

	g.Go(func() error {
		slog.InfoContext(ctx, "Listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
