package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/inventory-engine/internal/domain/entity"
	"github.com/jhoicas/inventory-engine/pkg/logger"
)

// MessageReader lo que Consumer necesita de *kafkago.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventHandler consume un evento ya deserializado.
type EventHandler interface {
	Handle(ctx context.Context, ev entity.Event)
}

// Consumer lee el tópico de eventos en un grupo de consumidores y entrega cada evento al manejador.
// El offset se confirma después de manejar el mensaje: la entrega es al menos una vez.
type Consumer struct {
	reader  MessageReader
	handler EventHandler
	log     zerolog.Logger
}

// NewReader construye el reader del grupo.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// NewConsumer construye el consumidor.
func NewConsumer(reader MessageReader, handler EventHandler, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		handler: handler,
		log:     log.With().Str("component", "kafka_consumer").Logger(),
	}
}

// Run bloquea hasta que ctx se cancela o el reader falla.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info().Msg("consumidor de eventos iniciado")
	defer c.log.Info().Msg("consumidor de eventos detenido")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.process(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("no se pudo confirmar el offset")
		}
	}
}

// Close cierra el reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) process(ctx context.Context, msg kafkago.Message) {
	ctx = extractTraceContext(ctx, msg.Headers)
	log := logger.FromContext(ctx, c.log)
	var ev entity.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// mensaje envenenado: se registra y se confirma para no bloquear la partición
		log.Error().Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("evento inválido descartado")
		return
	}
	log.Debug().
		Str("event_id", ev.ID).
		Str("event", string(ev.Type)).
		Int64("offset", msg.Offset).
		Msg("evento recibido")
	c.handler.Handle(ctx, ev)
}

func extractTraceContext(ctx context.Context, headers []kafkago.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
