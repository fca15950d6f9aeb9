// Command pipe-web starts a small web UI for running and stepping through
// record pipelines.
//
// Usage:
//
//	go run ./cmd/pipe-web -addr :8080
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"recpipe/internal/webui"
)

// server is the minimal surface run needs, so tests can swap in a double.
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// newServer is a seam for tests.
var newServer = func(cfg webui.Config) server {
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: webui.NewServer(cfg).Handler(),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], log.Default()); err != nil {
		log.Fatal(err)
	}
}

// run parses flags, starts the server, and blocks until the context is
// canceled or the listener fails.
func run(ctx context.Context, args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("pipe-web", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := newServer(webui.Config{Addr: *addr})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("listening on %s", *addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
