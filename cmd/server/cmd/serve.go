package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"scorekeeper/internal/app/server/api"
	"scorekeeper/internal/infrastructure/storage/blob"
	"scorekeeper/internal/infrastructure/storage/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP сервер",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		storage, err := postgres.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("ошибка подключения к базе: %w", err)
		}
		defer storage.Close()

		bucket, err := blob.NewBucket(cfg.Storage.Dir, cfg.Server.PublicBaseURL+api.PhotosPath)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Server.RunAddress,
			Handler:           api.New(storage, bucket, cfg, log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			log.Info("server started", "address", cfg.Server.RunAddress, "env", cfg.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ошибка HTTP сервера: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			log.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}
