package engine

import (
	"context"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

// Store é o recorte do RoundStore que os engines usam.
type Store interface {
	CreateRound(ctx context.Context, r *repo.Round) error
	SetStatus(ctx context.Context, family game.Family, roundID int64, status string) error
	SetOutcome(ctx context.Context, family game.Family, roundID int64, outcome string) error
	RoundOutcome(ctx context.Context, family game.Family, roundID int64) (string, bool, error)
	LastPeriod(ctx context.Context, family game.Family) (int64, error)
	InsertBet(ctx context.Context, b *repo.Bet) (string, error)
	BetsForRound(ctx context.Context, family game.Family, roundID int64) ([]repo.Bet, error)
	CashoutBet(ctx context.Context, family game.Family, roundID int64, userID string, multiplier float64) (string, int64, error)
	RoundTotals(ctx context.Context, family game.Family, roundID int64) (int64, int64, error)
}

// Wallet é o colaborador externo de saldo (débito atômico e crédito).
type Wallet interface {
	Debit(ctx context.Context, userID string, cents int64, externalRef string) error
	Credit(ctx context.Context, userID string, cents int64, externalRef string) error
}

// Publisher dispara a liquidação assíncrona de uma rodada fechada.
type Publisher interface {
	PublishRoundClosed(ctx context.Context, e events.RoundClosed) error
}

// Broadcaster entrega eventos ao feed em tempo real (best-effort).
type Broadcaster interface {
	Broadcast(ctx context.Context, gameName, typ string, payload interface{}) error
}
