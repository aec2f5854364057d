package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer long-polls a single queue.
type SQSConsumer struct {
	client            sqsAPI
	queueURL          string
	waitSeconds       int32
	visibilitySeconds int32
	errorBackoff      time.Duration
	logger            *zap.Logger
}

// NewSQSConsumer creates a new SQS consumer for the given queue URL
func NewSQSConsumer(cfg sdkaws.Config, queueURL string, logger *zap.Logger) *SQSConsumer {
	return newSQSConsumer(sqs.NewFromConfig(cfg), queueURL, logger)
}

func newSQSConsumer(client sqsAPI, queueURL string, logger *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:            client,
		queueURL:          queueURL,
		waitSeconds:       20,
		visibilitySeconds: 60,
		errorBackoff:      5 * time.Second,
		logger:            logger,
	}
}

// MessageHandler processes one message body. A non-nil error leaves the
// message on the queue so it becomes visible again after the visibility
// timeout.
type MessageHandler func(ctx context.Context, body string) error

// StartPolling runs until ctx is cancelled.
func (c *SQSConsumer) StartPolling(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Starting SQS polling", zap.String("queue_url", c.queueURL))

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("SQS polling stopped", zap.String("queue_url", c.queueURL))
			return err
		}

		if _, err := c.PollOnce(ctx, handler); err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			c.logger.Warn("Error polling SQS", zap.String("queue_url", c.queueURL), zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.errorBackoff):
			}
		}
	}
}

// PollOnce receives one batch and returns how many messages were handled
// successfully (and therefore deleted).
func (c *SQSConsumer) PollOnce(ctx context.Context, handler MessageHandler) (int, error) {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            sdkaws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.waitSeconds,
		VisibilityTimeout:   c.visibilitySeconds,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to receive messages: %w", err)
	}

	handled := 0
	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}

		if err := handler(ctx, *msg.Body); err != nil {
			c.logger.Warn("Failed to process SQS message; leaving it for redelivery",
				zap.String("message_id", sdkaws.ToString(msg.MessageId)),
				zap.Error(err),
			)
			continue
		}

		if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      sdkaws.String(c.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			c.logger.Warn("Failed to delete SQS message",
				zap.String("message_id", sdkaws.ToString(msg.MessageId)),
				zap.Error(err),
			)
			continue
		}
		handled++
	}

	return handled, nil
}
