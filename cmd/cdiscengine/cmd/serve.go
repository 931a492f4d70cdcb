package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/core/api"
	"github.com/solatis/cdiscengine/internal/core/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve --rules PATH [--rules PATH...]",
	Short: "Start the gRPC rule service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().StringSlice("rules", nil, "rule file or directory (repeatable)")
	_ = serveCmd.MarkFlagRequired("rules")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	paths, _ := cmd.Flags().GetStringSlice("rules")
	if _, err := rt.loadRules(paths); err != nil {
		return err
	}

	service, err := api.NewRuleService(rt.catalog, rt.data, rt.pipeline, &cfg.Engine, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Server, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting rule service",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("rules", rt.catalog.Len()))
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(ctx)
	}
}
