package appbootstrap

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ugel-incidentes/api"
	"ugel-incidentes/config"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"
)

// Run wires the application and blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := utils.NewLogger()
	logger.Configure(cfg.LogLevel, cfg.AppEnv)

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, cfg, logger); err != nil {
		return err
	}

	comp, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return err
	}
	server := api.NewServer(cfg, comp.serverDeps, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := comp.mantenimiento.Start(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("escuchando en %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Printf("apagando")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := comp.mantenimiento.Stop(shutdownCtx); err != nil {
		logger.Errorf("detener mantenimiento: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("apagar servidor http: %v", err)
		return err
	}
	return nil
}
