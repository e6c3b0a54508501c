package crash

import (
	"math"
	"math/rand"
	"sync"

	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
)

// Distribuições do crash point por modo de lucro
const (
	houseProfitMin = 1.0 // concentrado em multiplicadores baixos
	houseProfitMax = 2.5

	playerFavorableMin = 1.5 // mais jogadores alcançam o alvo de cash-out
	playerFavorableMax = 11.5
)

// Distribuição em camadas usada quando não há apostas na rodada: o feed
// continua visualmente realista mesmo sem movimento.
// 90% em [1,10), 8% em [10,30), 2% em [30,100).
const (
	tierLowCut = 0.90
	tierMidCut = 0.98
)

// Calculator sorteia o crash point de cada rodada contínua e acompanha os
// totais realizados (apostado x pago) para o modo de margem alvo.
// O valor sorteado nunca é exposto aos clientes antes do CRASHED.
type Calculator struct {
	mu  sync.Mutex
	rng *rand.Rand

	totalStakedCents int64
	totalPaidCents   int64
}

func New(seed int64) *Calculator {
	return &Calculator{rng: rand.New(rand.NewSource(seed))}
}

// Record acumula os totais de uma rodada encerrada (apostado e pago em
// cash-outs), alimentando o controle de margem.
func (c *Calculator) Record(stakedCents, paidCents int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalStakedCents += stakedCents
	c.totalPaidCents += paidCents
}

// RealizedMargin retorna a margem realizada da casa: (apostado - pago) /
// apostado. Zero quando ainda não há volume.
func (c *Calculator) RealizedMargin() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.realizedMarginLocked()
}

func (c *Calculator) realizedMarginLocked() float64 {
	if c.totalStakedCents == 0 {
		return 0
	}
	return float64(c.totalStakedCents-c.totalPaidCents) / float64(c.totalStakedCents)
}

// Next sorteia o crash point da próxima rodada a partir do total apostado
// e da política vigente. O override manual é tratado pelo engine antes
// de chegar aqui.
func (c *Calculator) Next(totalStakedCents int64, pol policy.Policy) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if totalStakedCents == 0 {
		return c.drawTiered()
	}

	switch pol.ProfitTarget {
	case policy.TargetFavorMajority:
		return c.drawUniform(playerFavorableMin, playerFavorableMax)
	case policy.TargetMargin:
		// abaixo da margem alvo a casa aperta; acima, solta
		if c.realizedMarginLocked() < pol.TargetMargin {
			return c.drawUniform(houseProfitMin, houseProfitMax)
		}
		return c.drawUniform(playerFavorableMin, playerFavorableMax)
	default:
		return c.drawUniform(houseProfitMin, houseProfitMax)
	}
}

func (c *Calculator) drawUniform(min, max float64) float64 {
	return round2(min + c.rng.Float64()*(max-min))
}

func (c *Calculator) drawTiered() float64 {
	r := c.rng.Float64()
	switch {
	case r < tierLowCut:
		return round2(1 + c.rng.Float64()*9)
	case r < tierMidCut:
		return round2(10 + c.rng.Float64()*20)
	default:
		return round2(30 + c.rng.Float64()*70)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Multiplier computa o multiplicador ao vivo: crescimento exponencial
// monotônico nos segundos decorridos, arredondado a 2 casas.
func Multiplier(elapsedSeconds, growthRate float64) float64 {
	if elapsedSeconds < 0 {
		return 1.0
	}
	return round2(math.Exp(growthRate * elapsedSeconds))
}
