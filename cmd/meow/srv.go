package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meow/internal/blobstore"
	"meow/internal/config"
	"meow/internal/server"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the meow API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.StorageDir == "" {
				return fmt.Errorf("storage dir is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			ids, err := blobstore.NewIDGenerator(cfg.IDStrategy)
			if err != nil {
				return err
			}

			logger.Info("opening storage", "path", cfg.StorageDir, "id_strategy", cfg.IDStrategy)
			bs, err := blobstore.NewLocalStore(cfg.StorageDir, blobstore.WithIDGenerator(ids))
			if err != nil {
				return err
			}

			var metrics *server.Metrics
			if cfg.Metrics.Enabled {
				metrics = server.NewMetrics()
			}

			srv := server.New(addr, bs, logger, metrics)
			srv.ConfigureUploadOptions(server.UploadOptions{
				MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
				MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
}
