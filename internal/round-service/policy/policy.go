package policy

import (
	"errors"
	"sync"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
)

// Modo de seleção do resultado
const (
	ModeAuto   = "AUTO"   // algoritmo decide
	ModeManual = "MANUAL" // operador define o próximo resultado
)

// Alvo de lucro da casa
const (
	TargetMinimizePayout = "MINIMIZE_PAYOUT" // menor passivo possível (default)
	TargetFavorMajority  = "FAVOR_MAJORITY"  // favorece o agrupamento mais apostado
	TargetMargin         = "TARGET_MARGIN"   // margem alvo (rodadas contínuas)
)

var (
	ErrUnknownMode   = errors.New("unknown policy mode")
	ErrUnknownTarget = errors.New("unknown profit target")
	ErrInvalidMargin = errors.New("target margin out of range")
)

// Policy é a configuração mutável pelo operador para uma família de jogo.
// O override é consumido no máximo uma vez (limpo ao ser lido na decisão).
type Policy struct {
	Mode         string
	Override     *string // próximo resultado forçado; nil quando não definido
	ProfitTarget string
	TargetMargin float64 // usado quando ProfitTarget == TARGET_MARGIN
	Enabled      bool    // liga/desliga a família
}

// Store guarda a política por família de jogo. Leitores tiram um snapshot
// no momento da decisão; escritas do operador tomam o lock de escrita
// brevemente. Mutação no meio de uma rodada só vale para rodadas que ainda
// não entraram na computação do resultado.
type Store struct {
	mu       sync.RWMutex
	byFamily map[game.Family]*Policy
}

// NewStore cria o Store com o default seguro para todas as famílias:
// automático + menor passivo, habilitado.
func NewStore(families ...game.Family) *Store {
	s := &Store{byFamily: make(map[game.Family]*Policy, len(families))}
	for _, f := range families {
		s.byFamily[f] = &Policy{
			Mode:         ModeAuto,
			ProfitTarget: TargetMinimizePayout,
			TargetMargin: 0.10,
			Enabled:      true,
		}
	}
	return s
}

// Snapshot retorna uma cópia da política vigente (sem consumir o override).
func (s *Store) Snapshot(f game.Family) Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byFamily[f]
	if !ok {
		return Policy{Mode: ModeAuto, ProfitTarget: TargetMinimizePayout, Enabled: true}
	}
	cp := *p
	if p.Override != nil {
		v := *p.Override
		cp.Override = &v
	}
	return cp
}

// ConsumeOverride devolve e limpa o override pendente, se o modo for MANUAL.
// A limpeza imediata garante que exatamente uma rodada use o valor.
func (s *Store) ConsumeOverride(f game.Family) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byFamily[f]
	if !ok || p.Mode != ModeManual || p.Override == nil {
		return "", false
	}
	v := *p.Override
	p.Override = nil
	return v, true
}

// SetOverride define o próximo resultado forçado. A validação do valor por
// família acontece na superfície de controle, antes de chegar aqui.
func (s *Store) SetOverride(f game.Family, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byFamily[f]; ok {
		v := value
		p.Override = &v
	}
}

// Update altera modo/alvo/margem de uma família; valores inválidos são
// rejeitados e a política anterior é mantida.
func (s *Store) Update(f game.Family, mode, target string, margin float64) error {
	switch mode {
	case ModeAuto, ModeManual:
	default:
		return ErrUnknownMode
	}
	switch target {
	case TargetMinimizePayout, TargetFavorMajority, TargetMargin:
	default:
		return ErrUnknownTarget
	}
	if margin < 0 || margin > 0.5 {
		return ErrInvalidMargin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byFamily[f]
	if !ok {
		return errors.New("unknown game family")
	}
	p.Mode = mode
	p.ProfitTarget = target
	p.TargetMargin = margin
	return nil
}

// SetEnabled liga/desliga uma família (rodadas novas deixam de abrir).
func (s *Store) SetEnabled(f game.Family, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byFamily[f]; ok {
		p.Enabled = on
	}
}

// Enabled informa se a família está habilitada.
func (s *Store) Enabled(f game.Family) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byFamily[f]
	return ok && p.Enabled
}
