//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "factgate/pkg/domain"
	audit "factgate/pkg/platform/audit"
	auditkafka "factgate/pkg/platform/audit/publishers/kafka"
	"factgate/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	brokers   []string
	topic     string
	publisher *auditkafka.Publisher
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *PublisherSuite) SetupTest() {
	// Fresh topic per test so assertions never see another test's records.
	s.topic = "factgate.audit." + uuid.NewString()
	publisher, err := auditkafka.New(context.Background(), s.brokers, s.topic)
	s.Require().NoError(err)
	s.publisher = publisher
}

func (s *PublisherSuite) TearDownTest() {
	s.publisher.Close()
}

func (s *PublisherSuite) consumeOne(ctx context.Context) *kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	fetches := client.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)
	return records[0]
}

func (s *PublisherSuite) TestAppendProducesKeyedRecord() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := id.UserID(uuid.New())
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		TenantID:  "tenant_acme",
		Resource:  "financial_facts",
		Operation: "write",
		Action:    string(audit.EventAccessDenied),
		Decision:  "denied",
		Metadata:  map[string]string{"reason": "role"},
	}
	s.Require().NoError(s.publisher.Append(ctx, event))

	record := s.consumeOne(ctx)
	s.Equal(userID.String(), string(record.Key))

	var body map[string]any
	s.Require().NoError(json.Unmarshal(record.Value, &body))
	s.Equal("access_denied", body["action"])
	s.Equal("denied", body["decision"])
	s.Equal("tenant_acme", body["tenant_id"])
	s.Equal("security", body["category"])
}

func (s *PublisherSuite) TestTopicCreationIsIdempotent() {
	second, err := auditkafka.New(context.Background(), s.brokers, s.topic)
	s.Require().NoError(err)
	second.Close()
}
