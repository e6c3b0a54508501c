package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/game-rounds-poc/internal/round-service/crash"
	"github.com/radieske/game-rounds-poc/internal/round-service/dto"
	"github.com/radieske/game-rounds-poc/internal/round-service/game"
	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
	"github.com/radieske/game-rounds-poc/internal/round-service/pubsub"
	"github.com/radieske/game-rounds-poc/internal/round-service/repo"
	"github.com/radieske/game-rounds-poc/pkg/contracts/events"
)

// CrashConfig parametriza o ciclo contínuo de multiplicador.
type CrashConfig struct {
	Waiting       time.Duration // janela de apostas antes do voo
	Grace         time.Duration // exibição do resultado após o crash
	Tick          time.Duration
	GrowthRate    float64
	MaxPoint      float64
	MinStakeCents int64
}

// CrashEngine roda o ciclo WAITING → RUNNING → CRASHED em loop. Uma
// goroutine é dona das fases; apostas só entram em WAITING e o cash-out
// disputa com a liquidação do crash via compare-and-set no banco.
type CrashEngine struct {
	log    *zap.Logger
	cfg    CrashConfig
	store  Store
	wallet Wallet
	pub    Publisher
	bcast  Broadcaster
	policy *policy.Store
	calc   *crash.Calculator
	now    func() time.Time

	mu         sync.Mutex
	curID      int64
	phase      string // WAITING | RUNNING | CRASHED
	startedAt  time.Time
	multiplier float64
	crashPoint float64

	OnBetAccepted func()
	OnBetRejected func(reason string)
	OnRoundClosed func()
	OnCashout     func()
}

func NewCrashEngine(log *zap.Logger, cfg CrashConfig, store Store, wallet Wallet, pub Publisher, bcast Broadcaster, pol *policy.Store, calc *crash.Calculator) *CrashEngine {
	return &CrashEngine{
		log:    log.With(zap.String("game", string(game.FamilyCrash))),
		cfg:    cfg,
		store:  store,
		wallet: wallet,
		pub:    pub,
		bcast:  bcast,
		policy: pol,
		calc:   calc,
		now:    time.Now,
		phase:  game.StatusCrashed,
	}
}

// Run executa ciclos até o contexto encerrar. Família desabilitada pela
// política pausa o loop entre ciclos, nunca no meio de um voo.
func (e *CrashEngine) Run(ctx context.Context) error {
	last, err := e.store.LastPeriod(ctx, game.FamilyCrash)
	if err != nil {
		return err
	}
	next := last + 1

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !e.policy.Enabled(game.FamilyCrash) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		e.runCycle(ctx, next)
		next++
	}
}

func (e *CrashEngine) runCycle(ctx context.Context, roundID int64) {
	e.beginWaiting(ctx, roundID)
	if !sleepCtx(ctx, e.cfg.Waiting) {
		return
	}

	cp := e.beginRunning(ctx, roundID)

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		elapsed := e.now().Sub(e.startedAtSnapshot()).Seconds()
		m := crash.Multiplier(elapsed, e.cfg.GrowthRate)
		if m >= cp {
			break
		}
		e.mu.Lock()
		e.multiplier = m
		e.mu.Unlock()
		_ = e.bcast.Broadcast(ctx, string(game.FamilyCrash), pubsub.EventMultiplierTick, dto.MultiplierTickPayload{
			Period: roundID, Multiplier: m,
		})
	}

	e.doCrash(ctx, roundID, cp)
	sleepCtx(ctx, e.cfg.Grace)
}

func (e *CrashEngine) beginWaiting(ctx context.Context, roundID int64) {
	now := e.now()
	e.mu.Lock()
	e.curID = roundID
	e.phase = game.StatusWaiting
	e.multiplier = 1.0
	e.crashPoint = 0
	e.mu.Unlock()

	r := &repo.Round{Family: string(game.FamilyCrash), ID: roundID, Status: game.StatusWaiting,
		OpenedAt: now, ClosesAt: now.Add(e.cfg.Waiting)}
	if err := withRetry(ctx, 3, func() error { return e.store.CreateRound(ctx, r) }); err != nil {
		e.log.Error("create round", zap.Int64("period", roundID), zap.Error(err))
	}
	_ = e.bcast.Broadcast(ctx, string(game.FamilyCrash), pubsub.EventRoundOpened, dto.RoundOpenedPayload{
		Period: roundID, Status: game.StatusWaiting, ClosesAt: now.Add(e.cfg.Waiting),
	})
}

// beginRunning decide o crash point, via override do operador (uso único,
// validado no intervalo) ou pelo sorteio do calculador, e inicia o voo.
// O ponto nunca sai do processo antes do crash.
func (e *CrashEngine) beginRunning(ctx context.Context, roundID int64) float64 {
	staked, _, err := e.store.RoundTotals(ctx, game.FamilyCrash, roundID)
	if err != nil {
		e.log.Warn("round totals", zap.Int64("period", roundID), zap.Error(err))
	}

	var cp float64
	if ov, ok := e.policy.ConsumeOverride(game.FamilyCrash); ok {
		v, perr := strconv.ParseFloat(ov, 64)
		if perr == nil && v > 1.0 && v <= e.cfg.MaxPoint {
			cp = v
		} else {
			e.log.Warn("invalid operator override, falling back to draw", zap.String("value", ov))
		}
	}
	if cp == 0 {
		cp = e.calc.Next(staked, e.policy.Snapshot(game.FamilyCrash))
	}

	e.mu.Lock()
	e.phase = game.StatusRunning
	e.startedAt = e.now()
	e.multiplier = 1.0
	e.crashPoint = cp
	e.mu.Unlock()

	if err := e.store.SetStatus(ctx, game.FamilyCrash, roundID, game.StatusRunning); err != nil {
		e.log.Warn("set running", zap.Int64("period", roundID), zap.Error(err))
	}
	return cp
}

func (e *CrashEngine) doCrash(ctx context.Context, roundID int64, cp float64) {
	e.mu.Lock()
	e.phase = game.StatusCrashed
	e.multiplier = cp
	e.mu.Unlock()

	out := strconv.FormatFloat(cp, 'f', 2, 64)
	if err := withRetry(ctx, 3, func() error {
		return e.store.SetOutcome(ctx, game.FamilyCrash, roundID, out)
	}); err != nil {
		e.log.Error("set outcome", zap.Int64("period", roundID), zap.Error(err))
	}

	_ = e.bcast.Broadcast(ctx, string(game.FamilyCrash), pubsub.EventCrash, dto.CrashPayload{
		Period: roundID, CrashPoint: cp,
	})

	staked, paid, err := e.store.RoundTotals(ctx, game.FamilyCrash, roundID)
	if err != nil {
		e.log.Warn("round totals", zap.Int64("period", roundID), zap.Error(err))
	} else {
		// realimenta a margem realizada (cash-outs já pagos neste ciclo)
		e.calc.Record(staked, paid)
	}

	if err := e.pub.PublishRoundClosed(ctx, events.RoundClosed{
		Family:           string(game.FamilyCrash),
		RoundID:          roundID,
		Outcome:          out,
		TotalStakedCents: staked,
	}); err != nil {
		e.log.Error("publish round_closed", zap.Int64("period", roundID), zap.Error(err))
	}
	if e.OnRoundClosed != nil {
		e.OnRoundClosed()
	}
	e.log.Info("round crashed", zap.Int64("period", roundID), zap.Float64("crashPoint", cp))
}

// PlaceBet aceita apostas apenas durante WAITING.
func (e *CrashEngine) PlaceBet(ctx context.Context, userID string, stakeCents int64) (*dto.PlaceBetResponse, error) {
	if stakeCents < e.cfg.MinStakeCents {
		e.reject("invalid_stake")
		return nil, game.ErrInvalidStake
	}
	if !e.policy.Enabled(game.FamilyCrash) {
		e.reject("disabled")
		return nil, game.ErrFamilyDisabled
	}

	betID := uuid.NewString()
	if err := e.wallet.Debit(ctx, userID, stakeCents, "bet:"+betID); err != nil {
		e.reject("insufficient_funds")
		return nil, err
	}

	e.mu.Lock()
	if e.phase != game.StatusWaiting {
		e.mu.Unlock()
		e.refund(ctx, userID, stakeCents, betID)
		e.reject("window_closed")
		return nil, game.ErrWindowClosed
	}
	roundID := e.curID
	_, err := e.store.InsertBet(ctx, &repo.Bet{
		ID: betID, Family: string(game.FamilyCrash), RoundID: roundID,
		UserID: userID, StakeCents: stakeCents,
	})
	e.mu.Unlock()
	if err != nil {
		e.refund(ctx, userID, stakeCents, betID)
		e.reject("store_error")
		return nil, err
	}

	_ = e.bcast.Broadcast(ctx, string(game.FamilyCrash), pubsub.EventBetAccepted, dto.BetAcceptedPayload{
		BetID: betID, Period: roundID, StakeCents: stakeCents,
	})
	if e.OnBetAccepted != nil {
		e.OnBetAccepted()
	}
	return &dto.PlaceBetResponse{BetID: betID, RoundID: roundID, Status: game.BetPending}, nil
}

// Cashout encerra a aposta PENDING do usuário no multiplicador corrente.
// A disputa com o crash é resolvida pelo compare-and-set do store: se o
// crash liquidou primeiro, não há aposta PENDING e a chamada falha.
func (e *CrashEngine) Cashout(ctx context.Context, userID string) (*dto.CashoutResponse, error) {
	e.mu.Lock()
	if e.phase != game.StatusRunning {
		e.mu.Unlock()
		return nil, game.ErrRoundNotRunning
	}
	roundID := e.curID
	m := e.multiplier
	e.mu.Unlock()

	betID, payout, err := e.store.CashoutBet(ctx, game.FamilyCrash, roundID, userID, m)
	if err != nil {
		return nil, err
	}

	if err := withRetry(ctx, 3, func() error {
		return e.wallet.Credit(ctx, userID, payout, "cashout:"+betID)
	}); err != nil {
		// a aposta está CASHED_OUT com payout gravado; crédito pendente
		// fica para reconciliação manual via ledger
		e.log.Error("credit cashout", zap.String("betId", betID), zap.Int64("payoutCents", payout), zap.Error(err))
	}

	_ = e.bcast.Broadcast(ctx, string(game.FamilyCrash), pubsub.EventCashout, dto.CashoutPayload{
		BetID: betID, Period: roundID, Multiplier: m, PayoutCents: payout,
	})
	if e.OnCashout != nil {
		e.OnCashout()
	}
	return &dto.CashoutResponse{BetID: betID, Multiplier: m, PayoutCents: payout}, nil
}

func (e *CrashEngine) refund(ctx context.Context, userID string, cents int64, betID string) {
	if err := withRetry(ctx, 3, func() error {
		return e.wallet.Credit(ctx, userID, cents, "bet-refund:"+betID)
	}); err != nil {
		e.log.Error("refund after rejected bet", zap.String("betId", betID), zap.Error(err))
	}
}

func (e *CrashEngine) reject(reason string) {
	if e.OnBetRejected != nil {
		e.OnBetRejected(reason)
	}
}

func (e *CrashEngine) startedAtSnapshot() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startedAt
}

// CurrentPeriod retorna o id do ciclo corrente.
func (e *CrashEngine) CurrentPeriod() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.curID
}

// State devolve fase e multiplicador correntes para o polling REST.
func (e *CrashEngine) State() dto.RoundState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := dto.RoundState{
		Game:   string(game.FamilyCrash),
		Period: e.curID,
		Status: e.phase,
		CanBet: e.phase == game.StatusWaiting,
	}
	if e.phase == game.StatusRunning {
		m := e.multiplier
		st.Multiplier = &m
	}
	return st
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
