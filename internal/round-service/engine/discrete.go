package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/dto"
	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/outcome"
	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
	"github.com/radieske/game-rounds-poc/internal/round-service/pubsub"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

// SelectFunc escolhe o resultado de uma rodada discreta a partir das
// apostas agregadas e do alvo de lucro vigente.
type SelectFunc func(bets []outcome.Stake, profitTarget string, rng *rand.Rand) string

// ValidateFunc valida uma seleção (ou um override do operador) da família.
type ValidateFunc func(sel string) bool

// DiscreteConfig parametriza uma família de rodadas discretas.
type DiscreteConfig struct {
	Family        game.Family
	RoundDuration time.Duration
	BettingWindow time.Duration // janela de apostas no início da rodada
	MinStakeCents int64
	Validate      ValidateFunc // seleções de aposta
	ValidOutcome  ValidateFunc // resultados (override do operador)
	Select        SelectFunc
}

// DiscreteScheduler mantém exatamente uma rodada aberta da família e a
// avança em cadência fixa. Uma única goroutine (Run) é dona das
// transições de estado; apostas concorrentes passam pelo funil do mutex
// para que "janela aberta?" e "registrar aposta" sejam atômicos.
type DiscreteScheduler struct {
	log    *zap.Logger
	cfg    DiscreteConfig
	store  Store
	wallet Wallet
	pub    Publisher
	bcast  Broadcaster
	policy *policy.Store
	rng    *rand.Rand
	now    func() time.Time

	mu       sync.Mutex
	curID    int64
	openedAt time.Time
	closesAt time.Time
	open     bool

	// rodadas fechadas cuja liquidação/publicação falhou; o loop de
	// reparo re-tenta até conseguir, apostas nunca são descartadas
	repair chan int64

	// callbacks de métricas (counter++)
	OnBetAccepted func()
	OnBetRejected func(reason string)
	OnRoundClosed func()
}

func NewDiscreteScheduler(log *zap.Logger, cfg DiscreteConfig, store Store, wallet Wallet, pub Publisher, bcast Broadcaster, pol *policy.Store, seed int64) *DiscreteScheduler {
	return &DiscreteScheduler{
		log:    log.With(zap.String("game", string(cfg.Family))),
		cfg:    cfg,
		store:  store,
		wallet: wallet,
		pub:    pub,
		bcast:  bcast,
		policy: pol,
		rng:    rand.New(rand.NewSource(seed)),
		now:    time.Now,
		repair: make(chan int64, 64),
	}
}

// Run é o loop dono da família: tick de 1s recomputando o tempo restante
// a partir do relógio (tolerante a jitter de scheduling), fechamento e
// abertura imediata da rodada seguinte.
func (s *DiscreteScheduler) Run(ctx context.Context) error {
	last, err := s.store.LastPeriod(ctx, s.cfg.Family)
	if err != nil {
		return err
	}
	s.openRound(ctx, game.NextPeriod(s.now(), last))

	go s.repairLoop(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *DiscreteScheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		if s.policy.Enabled(s.cfg.Family) {
			s.mu.Lock()
			next := game.NextPeriod(s.now(), s.curID)
			s.mu.Unlock()
			s.openRound(ctx, next)
		}
		return
	}
	id := s.curID
	left := s.closesAt.Sub(s.now())
	s.mu.Unlock()

	if left <= 0 {
		s.advance(ctx)
		return
	}

	_ = s.bcast.Broadcast(ctx, string(s.cfg.Family), pubsub.EventTimerTick, dto.TimerTickPayload{
		Period:          id,
		TimeLeftSeconds: int64(left.Seconds()),
		CanBet:          s.canBet(left),
	})
}

// canBet: a janela de apostas é o início da rodada; exatamente no limite
// a aposta já é rejeitada.
func (s *DiscreteScheduler) canBet(timeLeft time.Duration) bool {
	return timeLeft > s.cfg.RoundDuration-s.cfg.BettingWindow
}

// advance fecha a rodada corrente e abre a próxima no mesmo instante.
// A liquidação da rodada fechada roda em paralelo com a nova janela de
// apostas; backend lento jamais atrasa o relógio do jogo.
func (s *DiscreteScheduler) advance(ctx context.Context) {
	s.mu.Lock()
	prev := s.curID
	s.open = false
	s.mu.Unlock()

	if s.policy.Enabled(s.cfg.Family) {
		s.openRound(ctx, game.NextPeriod(s.now(), prev))
	} else {
		s.log.Info("family disabled, not opening next round", zap.Int64("period", prev))
	}

	if s.OnRoundClosed != nil {
		s.OnRoundClosed()
	}
	go s.settle(ctx, prev)
}

func (s *DiscreteScheduler) openRound(ctx context.Context, id int64) {
	now := s.now()
	s.mu.Lock()
	s.curID = id
	s.openedAt = now
	s.closesAt = now.Add(s.cfg.RoundDuration)
	s.open = true
	closesAt := s.closesAt
	s.mu.Unlock()

	// a rodada abre no horário mesmo com o store fora; a escrita é
	// re-tentada e o ON CONFLICT a torna idempotente
	r := &repo.Round{Family: string(s.cfg.Family), ID: id, Status: game.StatusOpen, OpenedAt: now, ClosesAt: closesAt}
	if err := withRetry(ctx, 3, func() error { return s.store.CreateRound(ctx, r) }); err != nil {
		s.log.Error("create round", zap.Int64("period", id), zap.Error(err))
	}

	_ = s.bcast.Broadcast(ctx, string(s.cfg.Family), pubsub.EventRoundOpened, dto.RoundOpenedPayload{
		Period: id, Status: game.StatusOpen, ClosesAt: closesAt,
	})
}

// settle computa e grava o resultado da rodada fechada e dispara a
// liquidação. Idempotente: se o resultado já foi gravado numa tentativa
// anterior, ele é reutilizado e nunca recomputado.
func (s *DiscreteScheduler) settle(ctx context.Context, roundID int64) {
	if err := s.store.SetStatus(ctx, s.cfg.Family, roundID, game.StatusLocked); err != nil {
		s.log.Warn("lock round", zap.Int64("period", roundID), zap.Error(err))
	}

	out, have, err := s.store.RoundOutcome(ctx, s.cfg.Family, roundID)
	if err != nil {
		s.log.Warn("load outcome", zap.Int64("period", roundID), zap.Error(err))
		s.enqueueRepair(roundID)
		return
	}

	if !have {
		bets, err := s.store.BetsForRound(ctx, s.cfg.Family, roundID)
		if err != nil {
			s.log.Warn("load bets", zap.Int64("period", roundID), zap.Error(err))
			s.enqueueRepair(roundID)
			return
		}
		out = s.decideOutcome(bets)
		if err := withRetry(ctx, 3, func() error {
			return s.store.SetOutcome(ctx, s.cfg.Family, roundID, out)
		}); err != nil {
			s.log.Error("set outcome", zap.Int64("period", roundID), zap.Error(err))
			s.enqueueRepair(roundID)
			return
		}
	}

	// broadcast do resultado só depois do registro durável
	_ = s.bcast.Broadcast(ctx, string(s.cfg.Family), pubsub.EventRoundResult, dto.RoundResultPayload{
		Period: roundID, Outcome: out,
	})

	staked, _, err := s.store.RoundTotals(ctx, s.cfg.Family, roundID)
	if err != nil {
		s.log.Warn("round totals", zap.Int64("period", roundID), zap.Error(err))
	}
	if err := s.pub.PublishRoundClosed(ctx, events.RoundClosed{
		Family:           string(s.cfg.Family),
		RoundID:          roundID,
		Outcome:          out,
		TotalStakedCents: staked,
	}); err != nil {
		s.log.Error("publish round_closed", zap.Int64("period", roundID), zap.Error(err))
		s.enqueueRepair(roundID)
		return
	}

	s.log.Info("round closed", zap.Int64("period", roundID), zap.String("outcome", out))
}

// decideOutcome aplica o override do operador (uso único, validado) ou o
// seletor da família com snapshot da política no momento da decisão.
func (s *DiscreteScheduler) decideOutcome(bets []repo.Bet) string {
	if ov, ok := s.policy.ConsumeOverride(s.cfg.Family); ok {
		if s.cfg.ValidOutcome(ov) {
			return ov
		}
		s.log.Warn("invalid operator override, falling back to selector", zap.String("value", ov))
	}
	snap := s.policy.Snapshot(s.cfg.Family)
	stakes := make([]outcome.Stake, 0, len(bets))
	for _, b := range bets {
		stakes = append(stakes, outcome.Stake{Selection: b.Selection, AmountCents: b.StakeCents})
	}
	return s.cfg.Select(stakes, snap.ProfitTarget, s.rng)
}

// repairLoop re-tenta indefinidamente a liquidação de rodadas cujo
// fechamento falhou; a cadência das rodadas novas nunca depende disso.
func (s *DiscreteScheduler) repairLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.repair:
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			s.settle(ctx, id)
		}
	}
}

func (s *DiscreteScheduler) enqueueRepair(roundID int64) {
	select {
	case s.repair <- roundID:
	default:
		s.log.Error("repair queue full, dropping retry slot", zap.Int64("period", roundID))
	}
}

// PlaceBet valida, debita e registra uma aposta na rodada aberta.
// Ou a aposta é debitada e registrada, ou nada acontece: falha após o
// débito estorna o valor.
func (s *DiscreteScheduler) PlaceBet(ctx context.Context, userID, selection string, stakeCents int64) (*dto.PlaceBetResponse, error) {
	if stakeCents < s.cfg.MinStakeCents {
		s.reject("invalid_stake")
		return nil, game.ErrInvalidStake
	}
	if !s.cfg.Validate(selection) {
		s.reject("invalid_selection")
		return nil, game.ErrInvalidSelection
	}
	if !s.policy.Enabled(s.cfg.Family) {
		s.reject("disabled")
		return nil, game.ErrFamilyDisabled
	}

	betID := uuid.NewString()
	// débito fora do funil: não toca estado de rodada
	if err := s.wallet.Debit(ctx, userID, stakeCents, "bet:"+betID); err != nil {
		s.reject("insufficient_funds")
		return nil, err
	}

	s.mu.Lock()
	left := s.closesAt.Sub(s.now())
	if !s.open || !s.canBet(left) {
		s.mu.Unlock()
		s.refund(ctx, userID, stakeCents, betID)
		s.reject("window_closed")
		return nil, game.ErrWindowClosed
	}
	roundID := s.curID
	_, err := s.store.InsertBet(ctx, &repo.Bet{
		ID: betID, Family: string(s.cfg.Family), RoundID: roundID,
		UserID: userID, Selection: selection, StakeCents: stakeCents,
	})
	s.mu.Unlock()
	if err != nil {
		s.refund(ctx, userID, stakeCents, betID)
		s.reject("store_error")
		return nil, err
	}

	_ = s.bcast.Broadcast(ctx, string(s.cfg.Family), pubsub.EventBetAccepted, dto.BetAcceptedPayload{
		BetID: betID, Period: roundID, Selection: selection, StakeCents: stakeCents,
	})
	if s.OnBetAccepted != nil {
		s.OnBetAccepted()
	}
	return &dto.PlaceBetResponse{BetID: betID, RoundID: roundID, Status: game.BetPending}, nil
}

func (s *DiscreteScheduler) refund(ctx context.Context, userID string, cents int64, betID string) {
	if err := withRetry(ctx, 3, func() error {
		return s.wallet.Credit(ctx, userID, cents, "bet-refund:"+betID)
	}); err != nil {
		s.log.Error("refund after rejected bet", zap.String("betId", betID), zap.Error(err))
	}
}

func (s *DiscreteScheduler) reject(reason string) {
	if s.OnBetRejected != nil {
		s.OnBetRejected(reason)
	}
}

// CurrentPeriod retorna o id da rodada corrente.
func (s *DiscreteScheduler) CurrentPeriod() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curID
}

// State devolve o estado corrente para o polling REST.
func (s *DiscreteScheduler) State() dto.RoundState {
	s.mu.Lock()
	defer s.mu.Unlock()
	left := s.closesAt.Sub(s.now())
	if left < 0 || !s.open {
		left = 0
	}
	status := game.StatusOpen
	if !s.open {
		status = game.StatusSettling
	}
	return dto.RoundState{
		Game:            string(s.cfg.Family),
		Period:          s.curID,
		Status:          status,
		TimeLeftSeconds: int64(left.Seconds()),
		CanBet:          s.open && s.canBet(left),
	}
}

// withRetry executa fn com backoff linear curto; usado nas escritas que
// não podem atrasar o relógio por muito tempo.
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(200*(i+1)) * time.Millisecond):
		}
	}
	return err
}
