package engine

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/outcome"
	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
	"github.com/radieske/game-rounds-poc/internal/round-service/pubsub"
)

func newTestScheduler(t *testing.T, sel SelectFunc) (*DiscreteScheduler, *fakeStore, *fakeWallet, *fakePublisher, *fakeBroadcaster, *policy.Store) {
	t.Helper()
	store := newFakeStore()
	wallet := &fakeWallet{}
	pub := &fakePublisher{}
	bcast := &fakeBroadcaster{}
	pol := policy.NewStore(game.FamilyWingo)
	if sel == nil {
		sel = func(bets []outcome.Stake, profitTarget string, rng *rand.Rand) string { return "2" }
	}
	s := NewDiscreteScheduler(zap.NewNop(), DiscreteConfig{
		Family:        game.FamilyWingo,
		RoundDuration: 60 * time.Second,
		BettingWindow: 50 * time.Second,
		MinStakeCents: 1000,
		Validate:      outcome.ValidWingoSelection,
		ValidOutcome:  outcome.ValidWingoOutcome,
		Select:        sel,
	}, store, wallet, pub, bcast, pol, 1)
	return s, store, wallet, pub, bcast, pol
}

// fixa o relógio e abre uma rodada manualmente, sem o loop Run
func openAt(s *DiscreteScheduler, id int64, opened time.Time) {
	s.now = func() time.Time { return opened }
	s.openRound(context.Background(), id)
}

func TestPlaceBetInsideWindow(t *testing.T) {
	s, store, wallet, _, _, _ := newTestScheduler(t, nil)
	opened := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	openAt(s, 202608300001, opened)

	// 49s decorridos: ainda dentro da janela de 50s
	s.now = func() time.Time { return opened.Add(49 * time.Second) }
	resp, err := s.PlaceBet(context.Background(), "u1", "Red", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(202608300001), resp.RoundID)
	assert.Equal(t, game.BetPending, resp.Status)

	require.Len(t, wallet.debits, 1)
	assert.Equal(t, "bet:"+resp.BetID, wallet.debits[0].Ref)
	require.Len(t, store.bets, 1)
	assert.Equal(t, "Red", store.bets[0].Selection)
}

func TestPlaceBetAtWindowBoundaryRejectedAndRefunded(t *testing.T) {
	s, store, wallet, _, _, _ := newTestScheduler(t, nil)
	opened := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	openAt(s, 202608300001, opened)

	// exatamente 50s decorridos: janela fechada, aposta rejeitada
	s.now = func() time.Time { return opened.Add(50 * time.Second) }
	_, err := s.PlaceBet(context.Background(), "u1", "Red", 5000)
	require.ErrorIs(t, err, game.ErrWindowClosed)

	assert.Empty(t, store.bets)
	// débito seguido de estorno
	require.Len(t, wallet.debits, 1)
	require.Len(t, wallet.credits, 1)
	assert.Equal(t, wallet.debits[0].Cents, wallet.credits[0].Cents)
	assert.Contains(t, wallet.credits[0].Ref, "bet-refund:")
}

func TestPlaceBetValidation(t *testing.T) {
	s, _, wallet, _, _, _ := newTestScheduler(t, nil)
	opened := time.Now()
	openAt(s, 1, opened)
	s.now = func() time.Time { return opened }

	_, err := s.PlaceBet(context.Background(), "u1", "Red", 500)
	assert.ErrorIs(t, err, game.ErrInvalidStake)

	_, err = s.PlaceBet(context.Background(), "u1", "PURPLE", 5000)
	assert.ErrorIs(t, err, game.ErrInvalidSelection)

	// nada chegou à carteira
	assert.Empty(t, wallet.debits)
}

func TestPlaceBetInsufficientFundsDoesNotTouchStore(t *testing.T) {
	s, store, wallet, _, _, _ := newTestScheduler(t, nil)
	wallet.debitErr = game.ErrInsufficientFunds
	opened := time.Now()
	openAt(s, 1, opened)
	s.now = func() time.Time { return opened }

	_, err := s.PlaceBet(context.Background(), "u1", "Red", 5000)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	assert.Empty(t, store.bets)
	assert.Empty(t, wallet.credits)
}

func TestSettlePublishesAfterDurableOutcome(t *testing.T) {
	s, store, _, pub, bcast, _ := newTestScheduler(t, nil)
	opened := time.Now()
	openAt(s, 42, opened)

	s.settle(context.Background(), 42)

	out, have, err := store.RoundOutcome(context.Background(), game.FamilyWingo, 42)
	require.NoError(t, err)
	require.True(t, have)
	assert.Equal(t, "2", out)

	evs := pub.published()
	require.Len(t, evs, 1)
	assert.Equal(t, "2", evs[0].Outcome)
	assert.Equal(t, int64(42), evs[0].RoundID)

	results := bcast.byType(pubsub.EventRoundResult)
	require.Len(t, results, 1)
}

func TestSettleReusesExistingOutcome(t *testing.T) {
	selCalls := 0
	s, store, _, pub, _, _ := newTestScheduler(t, func([]outcome.Stake, string, *rand.Rand) string {
		selCalls++
		return "9"
	})
	openAt(s, 7, time.Now())
	require.NoError(t, store.SetOutcome(context.Background(), game.FamilyWingo, 7, "4"))

	s.settle(context.Background(), 7)
	s.settle(context.Background(), 7)

	assert.Zero(t, selCalls, "resultado gravado nunca é recomputado")
	for _, e := range pub.published() {
		assert.Equal(t, "4", e.Outcome)
	}
}

func TestOverrideConsumedForExactlyOneRound(t *testing.T) {
	s, store, _, _, _, pol := newTestScheduler(t, nil)
	require.NoError(t, pol.Update(game.FamilyWingo, policy.ModeManual, policy.TargetMinimizePayout, 0.1))
	pol.SetOverride(game.FamilyWingo, "7")

	openAt(s, 1, time.Now())
	s.settle(context.Background(), 1)
	out, _, _ := store.RoundOutcome(context.Background(), game.FamilyWingo, 1)
	assert.Equal(t, "7", out)

	// rodada seguinte volta ao seletor
	s.settle(context.Background(), 2)
	out, _, _ = store.RoundOutcome(context.Background(), game.FamilyWingo, 2)
	assert.Equal(t, "2", out)
}

func TestInvalidOverrideFallsBackToSelector(t *testing.T) {
	s, store, _, _, _, pol := newTestScheduler(t, nil)
	require.NoError(t, pol.Update(game.FamilyWingo, policy.ModeManual, policy.TargetMinimizePayout, 0.1))
	pol.SetOverride(game.FamilyWingo, "BANANA")

	openAt(s, 1, time.Now())
	s.settle(context.Background(), 1)
	out, _, _ := store.RoundOutcome(context.Background(), game.FamilyWingo, 1)
	assert.Equal(t, "2", out)
}

func TestOverrideIgnoredInAutoMode(t *testing.T) {
	s, store, _, _, _, pol := newTestScheduler(t, nil)
	pol.SetOverride(game.FamilyWingo, "7") // modo segue AUTO

	openAt(s, 1, time.Now())
	s.settle(context.Background(), 1)
	out, _, _ := store.RoundOutcome(context.Background(), game.FamilyWingo, 1)
	assert.Equal(t, "2", out)
}

func TestStateReportsWindow(t *testing.T) {
	s, _, _, _, _, _ := newTestScheduler(t, nil)
	opened := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	openAt(s, 202608300001, opened)

	s.now = func() time.Time { return opened.Add(30 * time.Second) }
	st := s.State()
	assert.Equal(t, game.StatusOpen, st.Status)
	assert.Equal(t, int64(30), st.TimeLeftSeconds)
	assert.True(t, st.CanBet)

	s.now = func() time.Time { return opened.Add(55 * time.Second) }
	st = s.State()
	assert.False(t, st.CanBet, "últimos 10s são só observação")
	assert.Equal(t, int64(5), st.TimeLeftSeconds)
}

func TestDisabledFamilyRejectsBets(t *testing.T) {
	s, _, wallet, _, _, pol := newTestScheduler(t, nil)
	opened := time.Now()
	openAt(s, 1, opened)
	s.now = func() time.Time { return opened }
	pol.SetEnabled(game.FamilyWingo, false)

	_, err := s.PlaceBet(context.Background(), "u1", "Red", 5000)
	assert.ErrorIs(t, err, game.ErrFamilyDisabled)
	assert.Empty(t, wallet.debits)
}
