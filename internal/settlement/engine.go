package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/outcome"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

// Store é o recorte do repositório usado na liquidação.
type Store interface {
	BetsForRound(ctx context.Context, family game.Family, roundID int64) ([]repo.Bet, error)
	SettleBet(ctx context.Context, betID, status string, payoutCents int64) (bool, error)
	CloseRound(ctx context.Context, family game.Family, roundID int64) error
}

// Wallet credita prêmios (idempotente por external_ref).
type Wallet interface {
	Credit(ctx context.Context, userID string, cents int64, externalRef string) error
}

// Engine aplica o resultado de uma rodada fechada sobre as apostas
// pendentes. Reprocessar o mesmo evento é inócuo: o crédito é idempotente
// por external_ref e a transição da aposta é compare-and-set a partir de
// PENDING.
type Engine struct {
	log    *zap.Logger
	store  Store
	wallet Wallet
}

func NewEngine(log *zap.Logger, store Store, wallet Wallet) *Engine {
	return &Engine{log: log, store: store, wallet: wallet}
}

// Resolve liquida todas as apostas pendentes da rodada e devolve o resumo.
func (e *Engine) Resolve(ctx context.Context, ev events.RoundClosed) (*events.RoundSettled, error) {
	family := game.Family(ev.Family)
	bets, err := e.store.BetsForRound(ctx, family, ev.RoundID)
	if err != nil {
		return nil, err
	}

	settled := 0
	var totalPayout int64
	for _, b := range bets {
		if b.Status != game.BetPending {
			// já liquidada ou sacada via cash-out
			continue
		}
		payout := outcome.Payout(family, b.Selection, ev.Outcome, b.StakeCents)
		status := game.BetLost
		if payout > 0 {
			status = game.BetWon
			// crédito antes da transição: replay após falha parcial
			// repete o crédito, que o ledger deduplica pelo external_ref
			if err := e.wallet.Credit(ctx, b.UserID, payout, "settle:"+b.ID); err != nil {
				return nil, err
			}
		}
		ok, err := e.store.SettleBet(ctx, b.ID, status, payout)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		settled++
		totalPayout += payout
	}

	if err := e.store.CloseRound(ctx, family, ev.RoundID); err != nil {
		return nil, err
	}

	e.log.Info("round settled",
		zap.String("game", ev.Family),
		zap.Int64("period", ev.RoundID),
		zap.String("outcome", ev.Outcome),
		zap.Int("bets", settled),
		zap.Int64("payoutCents", totalPayout),
	)

	return &events.RoundSettled{
		Family:           ev.Family,
		RoundID:          ev.RoundID,
		Outcome:          ev.Outcome,
		BetsSettled:      settled,
		TotalPayoutCents: totalPayout,
		Ts:               time.Now(),
	}, nil
}
