package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the screening HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-screener api", zap.String("version", version))

	pipeline, err := newPipeline(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("preparing the pipeline", zap.Error(err))
	}

	app := server.New(pipeline, server.Config{
		MaxUploadSize: config.Server.MaxUploadSize,
		Timeout:       config.Server.Timeout,
	}, logger.Named("server"))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down the server")
		if err := app.Shutdown(); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("address", config.Server.Listen))

	if err := app.Listen(config.Server.Listen); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
}
