// Package kafka publica y consume los eventos de dominio en un tópico de Kafka.
// La clave del mensaje es el agregado, así los eventos de un mismo agregado conservan su orden.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/inventory-engine/internal/application/inventory"
	"github.com/jhoicas/inventory-engine/internal/domain/entity"
)

var _ inventory.EventPublisher = (*Publisher)(nil)

const (
	headerEventType = "event-type"
	writeTimeout    = 5 * time.Second
)

// MessageWriter lo que Publisher necesita de *kafkago.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher EventPublisher sobre Kafka. Los fallos de entrega se registran y no se propagan.
type Publisher struct {
	writer MessageWriter
	log    zerolog.Logger
}

// NewWriter construye el writer del tópico.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
	}
}

// NewPublisher envuelve un writer.
func NewPublisher(writer MessageWriter, log zerolog.Logger) *Publisher {
	return &Publisher{
		writer: writer,
		log:    log.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish serializa cada evento a JSON e inyecta el contexto de traza en las cabeceras.
func (p *Publisher) Publish(ctx context.Context, events ...entity.Event) {
	if len(events) == 0 {
		return
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			p.log.Error().Err(err).Str("event_id", ev.ID).Msg("no se pudo serializar el evento")
			continue
		}
		headers := []kafkago.Header{{Key: headerEventType, Value: []byte(ev.Type)}}
		for k, v := range carrier {
			headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
		}
		msgs = append(msgs, kafkago.Message{
			Key:     []byte(ev.AggregateID),
			Value:   payload,
			Headers: headers,
		})
	}
	if len(msgs) == 0 {
		return
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(wctx, msgs...); err != nil {
		p.log.Error().Err(err).Int("events", len(msgs)).Msg("no se pudieron publicar los eventos")
		return
	}
	p.log.Debug().Int("events", len(msgs)).Msg("eventos publicados")
}

// Close cierra el writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
