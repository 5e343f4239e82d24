// Package events provides NATS publication and subscription for catalog
// update events.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"catalog-sync-service/internal/models"
)

const (
	StreamName             = "CATALOG_EVENTS"
	SubjectAbstractUpdated = "catalog.abstract.updated"
	SubjectConcreteUpdated = "catalog.concrete.updated"
)

// AbstractEvent carries one abstract product update on the bus.
type AbstractEvent struct {
	EventType string                  `json:"eventType"`
	Timestamp time.Time               `json:"timestamp"`
	Product   *models.AbstractProduct `json:"product"`
}

// ConcreteEvent carries one concrete product update on the bus.
type ConcreteEvent struct {
	EventType string                  `json:"eventType"`
	Timestamp time.Time               `json:"timestamp"`
	Product   *models.ConcreteProduct `json:"product"`
}

// Handler consumes catalog updates delivered from the bus.
type Handler interface {
	HandleAbstract(ctx context.Context, product *models.AbstractProduct) error
	HandleConcrete(ctx context.Context, product *models.ConcreteProduct) error
}

func connect(natsURL, name string, logger *logrus.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warnf("[NATS] Disconnected: %v", err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] Connection closed")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"catalog.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	return err
}
