package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/comicverse/unigraph/pkg/leaselock"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/pipeline"

	"github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how often a message goes through _retry before it is
// parked in _dlq.
const MaxRetries = 10

// ErrInvalidMessage marks messages that can never succeed.
var ErrInvalidMessage = errors.New("invalid message")

// Runner is satisfied by *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, params pipeline.RunParams) (*pipeline.Report, error)
}

// GraphRunHandler processes graph_queue messages.
type GraphRunHandler struct {
	Runner     Runner
	Characters loader.GraphFileLoader
	Locker     leaselock.Locker
	LeaseOpts  leaselock.Options
	Events     Publisher
}

// ProcessGraphRunMessage runs the pipeline for one message while holding the
// graph lease, then publishes a run event.
func (h *GraphRunHandler) ProcessGraphRunMessage(ctx context.Context, body []byte) error {
	msg, err := ParseGraphRunMsg(body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	logger.Info("[Queue] Graph run received", "run", msg.RunID, "correlation_id", msg.CorrelationID)

	var report *pipeline.Report
	err = h.Locker.WithLease(ctx, leaselock.GraphLockKey, h.LeaseOpts, func(ctx context.Context) error {
		var runErr error
		report, runErr = h.Runner.Run(ctx, pipeline.RunParams{
			RunID:         msg.RunID,
			Files:         msg.Files(h.Characters),
			TopN:          msg.TopN,
			ArticlePrefix: msg.ArticlePrefix,
		})
		return runErr
	})

	event := RunEventMsg{RunID: msg.RunID, CorrelationID: msg.CorrelationID}
	topic := "graph.run.completed"
	if err != nil {
		event.Status = "failed"
		event.Error = err.Error()
		topic = "graph.run.failed"
	} else {
		event.Status = "completed"
		event.Nodes = report.Nodes
		event.Edges = report.Edges
	}
	h.publishEvent(topic, event)

	return err
}

func (h *GraphRunHandler) publishEvent(topic string, event RunEventMsg) {
	if h.Events == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("[Queue] Failed to encode run event", "err", err)
		return
	}
	if err := PublishTopic(h.Events, topic, data); err != nil {
		logger.Error("[Queue] Failed to publish run event", "topic", topic, "err", err)
	}
}

func retriesOf(msg amqp091.Delivery) int {
	if val, ok := msg.Headers["x-retries"]; ok {
		switch v := val.(type) {
		case int32:
			return int(v)
		case int64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

// HandleProcessingError moves a failed message to <queue>_retry with an
// incremented x-retries header, or to <queue>_dlq once MaxRetries is reached
// or the message is invalid. The original delivery is acked once the copy
// is published and requeued if publishing fails.
func HandleProcessingError(ch Publisher, msg amqp091.Delivery, queueName string, cause error) {
	retries := retriesOf(msg)

	if retries >= MaxRetries || errors.Is(cause, ErrInvalidMessage) {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp091.Publishing{
				ContentType: msg.ContentType,
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp091.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
