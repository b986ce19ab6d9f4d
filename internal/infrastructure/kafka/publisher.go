// Package kafka publica los eventos de ciclo de vida de lotes en un tópico Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/Confinamiento-api/internal/domain/entity"
)

// messageWriter subconjunto de *kafka.Writer usado por el publicador.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implementa lot.Publisher. La clave del mensaje es el id del lote, de modo que los
// eventos de un mismo lote caen en la misma partición y conservan el orden.
type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	log     zerolog.Logger
}

// NewPublisher crea el writer sobre los brokers dados.
func NewPublisher(brokers []string, topic string, log zerolog.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("publicador kafka creado")
	return newPublisher(w, topic, log)
}

func newPublisher(w messageWriter, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, timeout: 2 * time.Second, log: log}
}

// Publish serializa el evento a JSON y lo escribe con un tiempo límite propio.
func (p *Publisher) Publish(ctx context.Context, event entity.LotLifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializar evento %s: %w", event.Type, err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.LotID),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publicar %s en %s: %w", event.Type, p.topic, err)
	}
	p.log.Debug().Str("event", event.Type).Str("lot_id", event.LotID).Msg("evento publicado")
	return nil
}

// Close vacía los mensajes pendientes y cierra el writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
