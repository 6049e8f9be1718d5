package events

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/travel_social/pkg/config"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{w: w, topic: "auth_events"}

	require.NoError(t, p.Publish(context.Background(), Event{
		Type:        TypeLoggedIn,
		PrincipalID: 42,
		Username:    "admin",
	}))
	require.Len(t, w.msgs, 1)

	m := w.msgs[0]
	assert.Equal(t, "42", string(m.Key))
	assert.Equal(t, "event_type", m.Headers[0].Key)
	assert.Equal(t, TypeLoggedIn, string(m.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, "admin", got.Username)
	assert.False(t, got.At.IsZero())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	p := &Producer{w: &recordingWriter{err: errors.New("broker down")}, topic: "auth_events"}
	err := p.Publish(context.Background(), Event{Type: TypeLoggedOut})
	assert.ErrorContains(t, err, "broker down")
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(nil, "auth_events")
	assert.Error(t, err)
	_, err = NewProducer([]string{"kafka:9092"}, "")
	assert.Error(t, err)

	p, err := NewProducer([]string{"kafka:9092"}, "auth_events")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}

// Runs against a real broker when KAFKA_TEST_BROKERS is set.
func TestProducer_Integration(t *testing.T) {
	brokers := config.CSV(os.Getenv("KAFKA_TEST_BROKERS"))
	if len(brokers) == 0 {
		t.Skip("KAFKA_TEST_BROKERS is required for tests")
	}
	topic := "auth_events_test"
	require.NoError(t, EnsureTopic(brokers[0], topic))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	conn, err := kafka.DialLeader(ctx, "tcp", brokers[0], topic, 0)
	require.NoError(t, err)
	end, err := conn.ReadLastOffset()
	require.NoError(t, err)
	_ = conn.Close()

	p, err := NewProducer(brokers, topic)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Publish(ctx, Event{Type: TypeTokenRefreshed, PrincipalID: 7}))

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   time.Second,
	})
	defer r.Close()
	require.NoError(t, r.SetOffset(end))

	m, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, TypeTokenRefreshed, got.Type)
	assert.Equal(t, uint(7), got.PrincipalID)
}
