// Package kafka publishes audit events to a Kafka topic so downstream
// consumers (SIEM, compliance archive) receive the stream without coupling to
// the primary store.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "factgate/pkg/platform/audit"
)

// Publisher appends audit events to a Kafka topic. Keys are the user ID so a
// user's trail stays ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// payload is the JSON structure written to the topic. Field names are stable;
// consumers deserialize by name.
type payload struct {
	Category  string            `json:"category"`
	Timestamp string            `json:"timestamp"`
	UserID    string            `json:"user_id,omitempty"`
	TenantID  string            `json:"tenant_id,omitempty"`
	Resource  string            `json:"resource,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Action    string            `json:"action"`
	Decision  string            `json:"decision,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	RefID     string            `json:"ref_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New connects to the brokers and ensures the topic exists. Topic creation is
// idempotent: an already-exists response is not an error.
func New(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create audit topic %q: %w", r.Topic, r.Err)
		}
	}

	return &Publisher{client: client, topic: topic}, nil
}

func (p *Publisher) Close() { p.client.Close() }

// Append produces the event synchronously. The caller (audit worker) already
// decouples this from the request path.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	body := payload{
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		TenantID:  event.TenantID.String(),
		Resource:  event.Resource,
		Operation: event.Operation,
		Action:    event.Action,
		Decision:  event.Decision,
		Success:   event.Success,
		Reason:    event.Reason,
		RefID:     event.RefID,
		RequestID: event.RequestID,
		IPAddress: event.IPAddress,
		Metadata:  event.Metadata,
	}
	if !event.UserID.IsNil() {
		body.UserID = event.UserID.String()
	}

	value, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(body.UserID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
