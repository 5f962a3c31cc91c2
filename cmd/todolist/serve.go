package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nick-dorsch/todolist/internal/config"
	"github.com/nick-dorsch/todolist/internal/controller"
	"github.com/nick-dorsch/todolist/internal/db"
	"github.com/nick-dorsch/todolist/internal/mcp"
	"github.com/nick-dorsch/todolist/internal/server"
)

const shutdownTimeout = 5 * time.Second

// openStore opens and migrates the server database, restoring the snapshot
// when one exists and keeping it current afterwards.
func openStore(ctx context.Context, e *env) (*db.DB, error) {
	database, err := db.Open(e.cfg.Server.DBPath)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	path := e.cfg.Server.SnapshotPath
	if path == "" {
		return database, nil
	}
	if _, err := os.Stat(path); err == nil {
		if err := database.ImportSnapshot(ctx, path); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to import snapshot: %w", err)
		}
		e.log.WithField("path", path).Info("imported snapshot")
	}
	database.EnableAutoSnapshot(path, func(err error) {
		e.log.WithError(err).WithField("path", path).Error("snapshot export failed")
	})
	return database, nil
}

func runServe(ctx context.Context, e *env) error {
	database, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer database.Close()

	if n, err := database.PruneSessions(ctx); err != nil {
		e.log.WithError(err).Warn("failed to prune sessions")
	} else if n > 0 {
		e.log.WithField("count", n).Info("pruned expired sessions")
	}

	srv := server.NewServer(database, server.Options{
		AllowAnonymous: e.cfg.Server.AllowAnonymous,
		AllowedOrigins: e.cfg.Server.AllowedOrigins,
		SessionTTL:     e.cfg.Server.SessionTTL.Duration,
		Logger:         e.log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(e.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	e.log.Info("api server stopped")
	return nil
}

func runMCP(ctx context.Context, e *env) error {
	c := newClient(e)
	if e.cfg.HasCredentials() {
		if err := c.Login(ctx, e.cfg.Username, e.cfg.Password); err != nil {
			return err
		}
	}
	s := mcp.NewServer(controller.New(c, controller.WithLogger(e.log)))
	return mcp.Serve(s)
}

func runInit(e *env, args []string) error {
	path := config.ProjectConfigFile
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.WriteExample(path); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "✓ Wrote %s\n", path)
	return nil
}
