// Command lockspaced serves the encrypted workspace store over a local
// HTTP API. Signing keys are generated per process, so every restart
// invalidates outstanding tokens along with the in-memory session.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/avinashreddy333/Lockspace/internal/audit"
	"github.com/avinashreddy333/Lockspace/internal/auth"
	"github.com/avinashreddy333/Lockspace/internal/config"
	"github.com/avinashreddy333/Lockspace/internal/crypto"
	"github.com/avinashreddy333/Lockspace/internal/logging"
	"github.com/avinashreddy333/Lockspace/internal/platform"
	"github.com/avinashreddy333/Lockspace/internal/server"
	"github.com/avinashreddy333/Lockspace/internal/store"
	"github.com/avinashreddy333/Lockspace/internal/workspace"
)

const tokenIssuer = "lockspaced"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintln(os.Stderr, "logging:", err)
		os.Exit(1)
	}
	defer func() { _ = logging.Sync() }()

	if err := platform.DisableCoreDumps(); err != nil {
		logging.Warn("core dumps not disabled", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logging.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = st.Close(context.Background()) }()

	mgr := workspace.New(st)
	mgr.SetMaxUploadBytes(cfg.MaxUploadBytes)

	priv, err := crypto.NewSigningKey()
	if err != nil {
		logging.Fatal("signing key", zap.Error(err))
	}
	signer := auth.NewSigner(priv, tokenIssuer, cfg.TokenTTL)

	srv := server.New(mgr, signer, audit.New(), server.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		MetricsEnabled: cfg.MetricsEnabled,
	})

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           logging.Middleware(srv.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("store", cfg.StoreDriver))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.Error("shutdown", zap.Error(err))
	}

	// Wipe keys before the process exits.
	mgr.LockWorkspace()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreFile:
		return store.OpenFile(cfg.DataPath)
	case config.StorePostgres:
		return store.NewPostgres(cfg.DatabaseURL)
	case config.StoreMongo:
		return store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
