package eventos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaSink forwards events to a topic, keyed by event type. Writes are
// asynchronous; delivery failures are only logged.
type KafkaSink struct {
	w *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
		Async:    true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("mensagens", len(msgs)).Msg("kafka: falha na entrega de eventos")
			}
		},
	}}
}

func (k *KafkaSink) Enviar(ctx context.Context, e Evento) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	return k.w.WriteMessages(ctx, kafka.Message{Key: []byte(e.Tipo), Value: b})
}

func (k *KafkaSink) Close() error { return k.w.Close() }
