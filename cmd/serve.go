package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "docchat/handler/http"
	"docchat/src/core/docqa"
	"docchat/src/infrastructure/job"
	"docchat/src/infrastructure/metrics"
	"docchat/src/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document chat API server",
	Long: `The serve command starts an HTTP server exposing workspaces, document upload,
search and chat. With ingest.mode=inline uploaded documents are ingested inside
this process; with ingest.mode=amqp they are queued for "docchat worker".`,
	RunE: RunServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := log.Watermill()
	var publisher message.Publisher
	var router *message.Router

	mode := viper.GetString("ingest.mode")
	switch mode {
	case "inline":
		pubsub := job.NewInMemoryPubSub(logger)
		publisher = pubsub

		ingestor, err := a.newIngestor()
		if err != nil {
			return err
		}
		jobService := job.NewJobService(pubsub, job.NewPostgresJobRepository(a.db), logger)
		jobService.HandleIngestion(ingestor)

		if router, err = job.NewRouter(pubsub, jobService, 0, logger); err != nil {
			return err
		}
	case "amqp":
		if publisher, err = newAMQPPublisher(logger); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown ingest.mode %q", mode)
	}
	defer publisher.Close()

	queue := job.NewJobService(publisher, job.NewPostgresJobRepository(a.db), logger)

	routerErr := make(chan error, 1)
	if router != nil {
		go func() {
			routerErr <- router.Run(ctx)
		}()
		<-router.Running()
		log.Info("Inline ingestion worker started")
	}

	handler := httpHdlr.NewHandler(
		docqa.NewWorkspaceService(a.cfg, a.workspaces, a.documents, a.chunks, a.blobs, a.index),
		docqa.NewDocumentService(a.cfg, a.workspaces, a.documents, a.chunks, a.blobs, a.index, queue),
		a.searchService(),
		a.chatService(),
		a.systemService(),
		httpHdlr.WithMetrics(metrics.Handler(a.registry)),
		httpHdlr.WithMaxUploadBytes(a.cfg.MaxUploadBytes),
	)

	if !viper.GetBool("log.development") {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr, "ingestMode", mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case err := <-routerErr:
		if err != nil {
			return fmt.Errorf("ingestion router stopped: %w", err)
		}
	}
	log.Info("Shutting down server...")

	timeout, err := time.ParseDuration(viper.GetString("server.shutdown_timeout"))
	if err != nil {
		log.Error(err, "Invalid shutdown timeout, using default 5s")
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}
	if router != nil {
		if err := router.Close(); err != nil {
			log.Error(err, "Error closing ingestion router")
		}
	}

	log.Info("Server exited")
	return nil
}
