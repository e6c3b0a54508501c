package pubsub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const ChannelRoundBroadcast = "round_events_broadcast"

// RoundEvent é o payload padrão do feed em tempo real. O mesmo formato é
// reentregue aos clientes WebSocket pelo subscriber do round-service.
type RoundEvent struct {
	Game    string      `json:"game"`
	Type    string      `json:"type"` // timer_tick | round_opened | bet_accepted | round_result | multiplier_tick | crash | cashout
	Payload interface{} `json:"payload"`
}

// Tipos de evento do feed
const (
	EventTimerTick      = "timer_tick"
	EventRoundOpened    = "round_opened"
	EventBetAccepted    = "bet_accepted"
	EventRoundResult    = "round_result"
	EventMultiplierTick = "multiplier_tick"
	EventCrash          = "crash"
	EventCashout        = "cashout"
)

// RedisBroadcaster publica eventos de rodada no canal Pub/Sub. A entrega é
// best-effort: um tick perdido é substituído pelo próximo, então falha de
// publicação não interrompe o engine.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = ChannelRoundBroadcast
	}
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, game, typ string, payload interface{}) error {
	msg, err := json.Marshal(RoundEvent{Game: game, Type: typ, Payload: payload})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, msg).Err()
}
