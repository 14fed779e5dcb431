package job

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// NewRouter consumes the jobs topic from subscriber and hands every message to
// the service. maxRetries <= 0 disables the retry middleware. A message whose
// job still fails after the retries is acked; the job row keeps the error.
func NewRouter(subscriber message.Subscriber, service *JobService, maxRetries int, logger watermill.LoggerAdapter) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(AckFailures(logger), middleware.Recoverer, middleware.CorrelationID)
	if maxRetries > 0 {
		router.AddMiddleware(middleware.Retry{
			MaxRetries:      maxRetries,
			InitialInterval: time.Second,
			Logger:          logger,
		}.Middleware)
	}

	router.AddNoPublisherHandler(
		"job_processor",
		Topic,
		subscriber,
		service.ProcessJobMessage,
	)
	return router, nil
}

// AckFailures swallows handler errors so the subscriber does not redeliver the
// message. gochannel and amqp both requeue nacked messages without a limit.
func AckFailures(logger watermill.LoggerAdapter) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			produced, err := h(msg)
			if err != nil {
				logger.Error("Job failed, message acked", err, watermill.LogFields{
					"message_uuid": msg.UUID,
				})
				return nil, nil
			}
			return produced, nil
		}
	}
}

// NewInMemoryPubSub is used when ingestion runs inside the API process.
func NewInMemoryPubSub(logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)
}
