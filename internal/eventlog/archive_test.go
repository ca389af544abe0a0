package eventlog

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

var testClient *mongo.Client

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatalf("could not start mongo container: %v", err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("could not get mongo connection string: %v", err)
	}

	testClient, err = Connect(ctx, uri)
	if err != nil {
		log.Fatalf("could not connect to mongo: %v", err)
	}

	code := m.Run()

	_ = testClient.Disconnect(ctx)
	if err := container.Terminate(ctx); err != nil {
		log.Fatalf("could not teardown mongo container: %v", err)
	}

	os.Exit(code)
}

func TestMongoArchiveRecordAndRecent(t *testing.T) {
	archive := NewMongoArchive(testClient, "archive_test_"+time.Now().Format("150405"))
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"evt_old", "evt_mid", "evt_new"} {
		require.NoError(t, archive.Record(ctx, &domain.PaymentEvent{
			ID:              id,
			Type:            "payment_intent.succeeded",
			PaymentIntentID: "pi_" + id,
			OrderID:         "order-1",
			Status:          "succeeded",
			AmountMinor:     1000,
			Outcome:         domain.EventApplied,
			Payload:         `{"id":"` + id + `"}`,
			ReceivedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	// A redelivery keeps the original record
	require.NoError(t, archive.Record(ctx, &domain.PaymentEvent{
		ID:         "evt_mid",
		Type:       "payment_intent.succeeded",
		Outcome:    domain.EventDuplicate,
		ReceivedAt: base.Add(time.Hour),
	}))

	events, err := archive.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt_new", events[0].ID)
	assert.Equal(t, "evt_mid", events[1].ID)
	assert.Equal(t, domain.EventApplied, events[1].Outcome)
	assert.Equal(t, "pi_evt_mid", events[1].PaymentIntentID)
	assert.True(t, events[0].ReceivedAt.Equal(base.Add(2*time.Second)))
}

func TestNoopArchive(t *testing.T) {
	archive := NewNoopArchive()
	require.NoError(t, archive.Record(context.Background(), &domain.PaymentEvent{ID: "x"}))

	events, err := archive.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
