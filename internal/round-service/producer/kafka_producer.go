package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

// KafkaPublisher publica o evento round_closed que dispara a liquidação.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

// PublishRoundClosed publica o fechamento de uma rodada. A chave é
// family:round_id, preservando a ordem por rodada na partição.
func (p *KafkaPublisher) PublishRoundClosed(ctx context.Context, e events.RoundClosed) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	key := e.Family + ":" + strconv.FormatInt(e.RoundID, 10)
	return p.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}
