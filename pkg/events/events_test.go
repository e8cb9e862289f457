package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherWritesEnvelope(t *testing.T) {
	w := &fakeWriter{}
	pub := NewKafkaPublisherWithWriter(w, "camp-school-api", nil)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	err := pub.Publish(context.Background(), EventEnrollmentFinalized, "pay-1", map[string]string{"class_id": "c-1"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "pay-1", string(msg.Key))
	assert.Equal(t, "x-event-type", msg.Headers[0].Key)
	assert.Equal(t, EventEnrollmentFinalized, string(msg.Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, EventEnrollmentFinalized, env.EventType)
	assert.Equal(t, "camp-school-api", env.Producer)
	assert.Equal(t, "pay-1", env.CorrelationID)
	assert.True(t, env.OccurredAt.Equal(fixed))
	assert.NotEmpty(t, env.EventID)
	assert.JSONEq(t, `{"class_id":"c-1"}`, string(env.Payload))
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	pub := NewKafkaPublisherWithWriter(w, "api", nil)

	err := pub.Publish(context.Background(), EventEnrollmentNeedsReview, "pay-2", struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	require.NoError(t, pub.Close())
	assert.True(t, w.closed)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "x", "y", nil))
	assert.NoError(t, p.Close())
}
