package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("sin deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "lots", zerolog.Nop())
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), entity.LotLifecycleEvent{
		Type:            entity.LotEventConfirmed,
		LotID:           "lot-1",
		LotCode:         "LOT-2403001",
		Stage:           entity.StageConfirmed,
		CurrentQuantity: 100,
		Actor:           "user-1",
		OccurredAt:      at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "lot-1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, entity.LotEventConfirmed, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "LOT-2403001", decoded["lot_code"])
	assert.Equal(t, "CONFIRMED", decoded["stage"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublish_WriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker caído")}
	p := newPublisher(w, "lots", zerolog.Nop())

	err := p.Publish(context.Background(), entity.LotLifecycleEvent{Type: entity.LotEventSold, LotID: "lot-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lot.sold")
}
