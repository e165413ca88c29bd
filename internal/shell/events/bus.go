// Package events publishes domain events over an in-process watermill bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
)

// =============================================================================
// Topics and Payloads
// =============================================================================

const (
	TopicDeploymentStatusChanged = "deployment.status_changed"
	TopicTemplateExecuted        = "template.executed"
)

// Topics returns every topic the services publish to.
func Topics() []string {
	return []string{TopicDeploymentStatusChanged, TopicTemplateExecuted}
}

// DeploymentStatusChanged is published when step updates move the derived
// deployment status.
type DeploymentStatusChanged struct {
	DeploymentID string            `json:"deployment_id"`
	MissionID    string            `json:"mission_id"`
	From         domain.StepStatus `json:"from"`
	To           domain.StepStatus `json:"to"`
	At           time.Time         `json:"at"`
}

// TemplateExecuted is published after every template execution, failed or not.
type TemplateExecuted struct {
	TemplateID     string          `json:"template_id"`
	Name           string          `json:"name"`
	Type           workflow.Type   `json:"type"`
	Status         workflow.Status `json:"status"`
	StepsCompleted int             `json:"steps_completed"`
	Error          string          `json:"error,omitempty"`
	At             time.Time       `json:"at"`
}

// =============================================================================
// Publisher
// =============================================================================

// Publisher delivers an event payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// =============================================================================
// Bus
// =============================================================================

// Config configures the bus.
type Config struct {
	// Buffer is the per-subscriber output channel size.
	Buffer int64
}

// Bus is a gochannel pub/sub with a router that logs every published event.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewBus creates the bus and registers the audit handlers. Call Start to run
// the router.
func NewBus(cfg Config, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            cfg.Buffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		wmLogger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	b := &Bus{
		pubsub: pubsub,
		router: router,
		logger: logger.With("component", "events"),
		done:   make(chan struct{}),
	}

	for _, topic := range Topics() {
		router.AddNoPublisherHandler(topic+"_audit", topic, pubsub, b.audit)
	}

	return b, nil
}

// Start runs the router in the background and waits until it is running.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.done)
		if err := b.router.Run(ctx); err != nil {
			b.logger.Error("event router stopped", "error", err)
		}
	}()

	select {
	case <-b.router.Running():
	case <-ctx.Done():
	}
}

// Publish encodes payload as JSON and publishes it to topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("topic", topic)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of messages for topic. Receivers must Ack each
// message.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return fmt.Errorf("close router: %w", err)
	}

	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if started {
		<-b.done
	}

	return b.pubsub.Close()
}

func (b *Bus) audit(msg *message.Message) error {
	b.logger.Info("event published",
		"topic", msg.Metadata.Get("topic"),
		"message_id", msg.UUID,
		"payload", string(msg.Payload),
	)
	return nil
}
