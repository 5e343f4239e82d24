package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

// Subscriber consumes catalog update events from the CATALOG_EVENTS stream
// and feeds them to a Handler. Malformed messages are negatively acknowledged
// so the broker redelivers them up to the configured limit.
type Subscriber struct {
	nc           *nats.Conn
	js           jetstream.JetStream
	handler      Handler
	consumerName string
	logger       *logrus.Entry
}

// NewSubscriber connects to NATS and prepares a durable consumer identity
// derived from the hostname.
func NewSubscriber(natsURL string, handler Handler, logger *logrus.Logger) (*Subscriber, error) {
	if logger == nil {
		logger = logrus.New()
	}
	nc, js, err := connect(natsURL, "catalog-sync-service", logger)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	return &Subscriber{
		nc:           nc,
		js:           js,
		handler:      handler,
		consumerName: fmt.Sprintf("catalog-sync-%s", hostname),
		logger:       logger.WithField("component", "catalog-events"),
	}, nil
}

// Start ensures the stream exists and begins consuming in the background
// until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	if err := ensureStream(ctx, s.js); err != nil {
		s.logger.WithError(err).Warn("Could not ensure catalog events stream")
	}

	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       s.consumerName,
		FilterSubject: "catalog.>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create catalog events consumer: %w", err)
	}

	go s.consume(ctx, consumer)

	s.logger.Info("Catalog event subscriber started")
	return nil
}

// Close drains the NATS connection.
func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

func (s *Subscriber) consume(ctx context.Context, consumer jetstream.Consumer) {
	msgs, err := consumer.Messages()
	if err != nil {
		s.logger.WithError(err).Error("Failed to get messages iterator")
		return
	}

	for {
		select {
		case <-ctx.Done():
			msgs.Stop()
			return
		default:
			msg, err := msgs.Next()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					return
				}
				s.logger.WithError(err).Error("Error getting next catalog message")
				time.Sleep(time.Second)
				continue
			}

			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.WithError(err).WithField("subject", msg.Subject()).Error("Error handling catalog event")
				msg.Nak()
			} else {
				msg.Ack()
			}
		}
	}
}

func (s *Subscriber) handleMessage(ctx context.Context, msg jetstream.Msg) error {
	switch msg.Subject() {
	case SubjectAbstractUpdated:
		var event AbstractEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return fmt.Errorf("failed to unmarshal abstract event: %w", err)
		}
		if event.Product == nil {
			return fmt.Errorf("abstract event without product payload")
		}
		s.logger.WithFields(logrus.Fields{
			"sku":       event.Product.SKU,
			"eventType": event.EventType,
		}).Info("Processing abstract product event")
		return s.handler.HandleAbstract(ctx, event.Product)

	case SubjectConcreteUpdated:
		var event ConcreteEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return fmt.Errorf("failed to unmarshal concrete event: %w", err)
		}
		if event.Product == nil {
			return fmt.Errorf("concrete event without product payload")
		}
		s.logger.WithFields(logrus.Fields{
			"sku":         event.Product.SKU,
			"abstractSku": event.Product.AbstractSKU,
			"eventType":   event.EventType,
		}).Info("Processing concrete product event")
		return s.handler.HandleConcrete(ctx, event.Product)

	default:
		s.logger.WithField("subject", msg.Subject()).Warn("Ignoring event on unknown subject")
		return nil
	}
}
