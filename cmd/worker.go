package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docchat/src/infrastructure/job"
	"docchat/src/log"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background ingestion worker",
	Long:  `The worker consumes ingest_document jobs from RabbitMQ; run it when the server uses ingest.mode=amqp.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := log.Watermill()

	publisher, err := newAMQPPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	subscriber, err := newAMQPSubscriber(logger)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	ingestor, err := a.newIngestor()
	if err != nil {
		return err
	}
	jobService := job.NewJobService(publisher, job.NewPostgresJobRepository(a.db), logger)
	jobService.HandleIngestion(ingestor)

	router, err := job.NewRouter(subscriber, jobService, viper.GetInt("ingest.max_retries"), logger)
	if err != nil {
		return err
	}

	log.Info("Worker started", "queue", job.Topic)
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("router stopped: %w", err)
	}
	log.Info("Router stopped")
	return nil
}
