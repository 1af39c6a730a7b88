package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	writer := &recordingWriter{}
	producer := NewProducerWithWriter(writer, "thistle.events", zapadapter.NewZapEctoLogger(zap.NewNop(), nil))

	err := producer.Publish(context.Background(), &Event{
		EventType:     "offer.received",
		SchemaVersion: "1.0",
		Key:           "neg-1",
		NegotiationID: "neg-1",
		Data:          json.RawMessage(`{"offer_id":"offer-s1-a"}`),
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "thistle.events", msg.Topic)
	assert.Equal(t, "neg-1", string(msg.Key))
	assert.Equal(t, kafka.Header{Key: "event_type", Value: []byte("offer.received")}, msg.Headers[0])

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "offer.received", decoded.EventType)
	assert.False(t, decoded.Timestamp.IsZero())
	assert.JSONEq(t, `{"offer_id":"offer-s1-a"}`, string(decoded.Data))
}

func TestProducer_PublishError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker unavailable")}
	producer := NewProducerWithWriter(writer, "thistle.events", zapadapter.NewZapEctoLogger(zap.NewNop(), nil))

	err := producer.Publish(context.Background(), &Event{EventType: "decision.created", Key: "quote-1"})
	assert.EqualError(t, err, "broker unavailable")
}

func TestPing_NoBrokers(t *testing.T) {
	err := Ping(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kafka brokers")
}
