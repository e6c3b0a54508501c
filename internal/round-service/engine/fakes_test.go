package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

type fakeStore struct {
	mu        sync.Mutex
	rounds    map[string]*repo.Round
	outcomes  map[string]string
	bets      []repo.Bet
	insertErr error
	cashoutFn func(userID string, multiplier float64) (string, int64, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{rounds: map[string]*repo.Round{}, outcomes: map[string]string{}}
}

func key(family game.Family, id int64) string { return fmt.Sprintf("%s:%d", family, id) }

func (f *fakeStore) CreateRound(_ context.Context, r *repo.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(game.Family(r.Family), r.ID)
	if _, ok := f.rounds[k]; !ok {
		f.rounds[k] = r
	}
	return nil
}

func (f *fakeStore) SetStatus(_ context.Context, family game.Family, roundID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rounds[key(family, roundID)]; ok {
		r.Status = status
	}
	return nil
}

func (f *fakeStore) SetOutcome(_ context.Context, family game.Family, roundID int64, outcome string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := key(family, roundID)
	if existing, ok := f.outcomes[k]; ok {
		if existing != outcome {
			return repo.ErrOutcomeAlreadySet
		}
		return nil
	}
	f.outcomes[k] = outcome
	return nil
}

func (f *fakeStore) RoundOutcome(_ context.Context, family game.Family, roundID int64) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, ok := f.outcomes[key(family, roundID)]
	return out, ok, nil
}

func (f *fakeStore) LastPeriod(_ context.Context, family game.Family) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last int64
	for _, r := range f.rounds {
		if game.Family(r.Family) == family && r.ID > last {
			last = r.ID
		}
	}
	return last, nil
}

func (f *fakeStore) InsertBet(_ context.Context, b *repo.Bet) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return "", f.insertErr
	}
	b.Status = game.BetPending
	f.bets = append(f.bets, *b)
	return b.ID, nil
}

func (f *fakeStore) BetsForRound(_ context.Context, family game.Family, roundID int64) ([]repo.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.Bet
	for _, b := range f.bets {
		if game.Family(b.Family) == family && b.RoundID == roundID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) CashoutBet(_ context.Context, _ game.Family, _ int64, userID string, multiplier float64) (string, int64, error) {
	if f.cashoutFn != nil {
		return f.cashoutFn(userID, multiplier)
	}
	return "", 0, game.ErrNoPendingBet
}

func (f *fakeStore) RoundTotals(_ context.Context, family game.Family, roundID int64) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var staked, paid int64
	for _, b := range f.bets {
		if game.Family(b.Family) == family && b.RoundID == roundID {
			staked += b.StakeCents
			paid += b.PayoutCents
		}
	}
	return staked, paid, nil
}

type walletOp struct {
	UserID string
	Cents  int64
	Ref    string
}

type fakeWallet struct {
	mu       sync.Mutex
	debitErr error
	debits   []walletOp
	credits  []walletOp
}

func (f *fakeWallet) Debit(_ context.Context, userID string, cents int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return f.debitErr
	}
	f.debits = append(f.debits, walletOp{userID, cents, ref})
	return nil
}

func (f *fakeWallet) Credit(_ context.Context, userID string, cents int64, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits = append(f.credits, walletOp{userID, cents, ref})
	return nil
}

func (f *fakeWallet) creditRefs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.credits {
		out = append(out, c.Ref)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.RoundClosed
}

func (f *fakePublisher) PublishRoundClosed(_ context.Context, e events.RoundClosed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) published() []events.RoundClosed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.RoundClosed(nil), f.events...)
}

type broadcastMsg struct {
	Game    string
	Type    string
	Payload interface{}
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []broadcastMsg
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, gameName, typ string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, broadcastMsg{gameName, typ, payload})
	return nil
}

func (f *fakeBroadcaster) byType(typ string) []broadcastMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcastMsg
	for _, m := range f.msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}
