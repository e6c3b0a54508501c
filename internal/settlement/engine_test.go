package settlement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/outcome"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

type memStore struct {
	bets   map[string]*repo.Bet
	closed []int64
}

func newMemStore(bets ...*repo.Bet) *memStore {
	s := &memStore{bets: map[string]*repo.Bet{}}
	for _, b := range bets {
		s.bets[b.ID] = b
	}
	return s
}

func (s *memStore) BetsForRound(_ context.Context, family game.Family, roundID int64) ([]repo.Bet, error) {
	var out []repo.Bet
	for _, b := range s.bets {
		if game.Family(b.Family) == family && b.RoundID == roundID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *memStore) SettleBet(_ context.Context, betID, status string, payoutCents int64) (bool, error) {
	b, ok := s.bets[betID]
	if !ok || b.Status != game.BetPending {
		return false, nil
	}
	b.Status = status
	b.PayoutCents = payoutCents
	return true, nil
}

func (s *memStore) CloseRound(_ context.Context, _ game.Family, roundID int64) error {
	s.closed = append(s.closed, roundID)
	return nil
}

type memWallet struct {
	credits map[string]int64 // external_ref -> cents (dedup como o ledger)
	calls   int
}

func newMemWallet() *memWallet { return &memWallet{credits: map[string]int64{}} }

func (w *memWallet) Credit(_ context.Context, _ string, cents int64, ref string) error {
	w.calls++
	if _, ok := w.credits[ref]; ok {
		return nil
	}
	w.credits[ref] = cents
	return nil
}

func wingoBet(id, userID, selection string, stake int64) *repo.Bet {
	return &repo.Bet{ID: id, Family: string(game.FamilyWingo), RoundID: 202608300010,
		UserID: userID, Selection: selection, StakeCents: stake, Status: game.BetPending}
}

func TestResolvePaysWinnersAndClosesRound(t *testing.T) {
	store := newMemStore(
		wingoBet("b1", "u1", "2", 10000),                 // número exato: 9.2x
		wingoBet("b2", "u2", outcome.ColorGreen, 10000),  // cor do 2: 1.98x
		wingoBet("b3", "u3", outcome.ColorRed, 10000),    // perde
	)
	wallet := newMemWallet()
	eng := NewEngine(zap.NewNop(), store, wallet)

	sum, err := eng.Resolve(context.Background(), events.RoundClosed{
		Family: string(game.FamilyWingo), RoundID: 202608300010, Outcome: "2",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.BetsSettled)
	assert.Equal(t, int64(92000+19800), sum.TotalPayoutCents)
	assert.Equal(t, game.BetWon, store.bets["b1"].Status)
	assert.Equal(t, int64(92000), store.bets["b1"].PayoutCents)
	assert.Equal(t, game.BetWon, store.bets["b2"].Status)
	assert.Equal(t, int64(19800), store.bets["b2"].PayoutCents)
	assert.Equal(t, game.BetLost, store.bets["b3"].Status)
	assert.Zero(t, store.bets["b3"].PayoutCents)

	assert.Equal(t, int64(92000), wallet.credits["settle:b1"])
	assert.Equal(t, int64(19800), wallet.credits["settle:b2"])
	assert.NotContains(t, wallet.credits, "settle:b3")
	assert.Equal(t, []int64{202608300010}, store.closed)
}

func TestResolveIsIdempotent(t *testing.T) {
	store := newMemStore(wingoBet("b1", "u1", "2", 10000))
	wallet := newMemWallet()
	eng := NewEngine(zap.NewNop(), store, wallet)
	ev := events.RoundClosed{Family: string(game.FamilyWingo), RoundID: 202608300010, Outcome: "2"}

	first, err := eng.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, 1, first.BetsSettled)

	// reentrega do mesmo evento: nenhuma aposta liquidada de novo,
	// nenhum crédito duplicado
	second, err := eng.Resolve(context.Background(), ev)
	require.NoError(t, err)
	assert.Zero(t, second.BetsSettled)
	assert.Zero(t, second.TotalPayoutCents)
	assert.Len(t, wallet.credits, 1)
}

func TestResolveSkipsCashedOutBets(t *testing.T) {
	cashed := wingoBet("b1", "u1", "", 10000)
	cashed.Family = string(game.FamilyCrash)
	cashed.Status = game.BetCashedOut
	cashed.PayoutCents = 15000
	pending := wingoBet("b2", "u2", "", 10000)
	pending.Family = string(game.FamilyCrash)
	store := newMemStore(cashed, pending)
	wallet := newMemWallet()
	eng := NewEngine(zap.NewNop(), store, wallet)

	sum, err := eng.Resolve(context.Background(), events.RoundClosed{
		Family: string(game.FamilyCrash), RoundID: 202608300010, Outcome: "2.37",
	})
	require.NoError(t, err)

	// crash: quem não sacou perde; quem sacou fica intocado
	assert.Equal(t, 1, sum.BetsSettled)
	assert.Zero(t, sum.TotalPayoutCents)
	assert.Equal(t, game.BetCashedOut, store.bets["b1"].Status)
	assert.Equal(t, int64(15000), store.bets["b1"].PayoutCents)
	assert.Equal(t, game.BetLost, store.bets["b2"].Status)
	assert.Empty(t, wallet.credits)
}
