package cmd

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/viper"
)

func newAMQPPublisher(logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := amqp.NewPublisher(amqp.NewDurableQueueConfig(viper.GetString("amqp.url")), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp publisher: %w", err)
	}
	return publisher, nil
}

func newAMQPSubscriber(logger watermill.LoggerAdapter) (message.Subscriber, error) {
	config := amqp.NewDurableQueueConfig(viper.GetString("amqp.url"))
	config.Consume.NoRequeueOnNack = true
	subscriber, err := amqp.NewSubscriber(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create amqp subscriber: %w", err)
	}
	return subscriber, nil
}
