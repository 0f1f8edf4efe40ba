package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.4.0"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

// openKV returns the SQLite store for path, or an in-memory one when path
// is empty.
func openKV(path string) (KVStore, error) {
	if path == "" {
		log.Warn().Msg("no --db configured, leaderboard will not survive a restart")
		return NewMemoryKV(), nil
	}
	return OpenSQLiteKV(path)
}

// newGenerator returns nil when no credentials are configured so the game
// runs on the built-in phrase lists.
func newGenerator(ctx context.Context, cfg *Config) (Generator, func(), error) {
	client, err := NewGeminiClient(ctx, cfg.geminiConfig())
	if errors.Is(err, errNoCredentials) {
		log.Warn().Msg("no Gemini credentials, using built-in phrases")
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("model", client.modelName).Msg("gemini client ready")
	return client, func() { _ = client.Close() }, nil
}

func run(ctx context.Context, cfg *Config) error {
	log.Info().Str("version", releaseVersion).Msg("starting meetingbingo")

	fallbacks, err := LoadFallbacks()
	if err != nil {
		return fmt.Errorf("load fallbacks: %w", err)
	}

	kv, err := openKV(cfg.db)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer kv.Close()

	lb, err := LoadLeaderboard(ctx, kv)
	if err != nil {
		return err
	}

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	var srv *Server
	sse := NewBroadcaster()
	store := NewStore(NewGateway(gen, fallbacks), lb, StoreConfig{
		IdleTimeout:     cfg.sessionTimeout,
		AnalysisTimeout: cfg.analysisTimeout,
		OnChange:        func(id string) { srv.PushState(id) },
		Connected:       func(id string) bool { return sse.ClientCount(id) > 0 },
	})
	defer store.Close()

	srv = NewServer(cfg, store, sse)
	defer srv.Close()

	// Cancelled before shutdown so open event streams end.
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           srv,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", fmt.Sprintf("%s://%s/", cfg.scheme(), httpSrv.Addr)).Msg("listening")
		var err error
		if cfg.scheme() == "https" {
			err = httpSrv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
