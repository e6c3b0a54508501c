package outcome

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
)

// Stake é a visão agregada de uma aposta que o seletor precisa:
// o que foi apostado e quanto.
type Stake struct {
	Selection   string
	AmountCents int64
}

// Limite de perda líquida: ao minimizar o passivo, candidatos com
// liability <= 90% do total apostado são preferidos.
const (
	netLossBoundNum = 9
	netLossBoundDen = 10
)

func payoutCents(stakeCents int64, mult float64) int64 {
	return int64(math.Round(float64(stakeCents) * mult))
}

func totalStaked(bets []Stake) int64 {
	var t int64
	for _, b := range bets {
		t += b.AmountCents
	}
	return t
}

// minimizeWithBound escolhe o índice de menor passivo. Primeiro considera
// apenas candidatos dentro do limite de perda; se nenhum couber, cai para
// o mínimo global (não existe estado de "rollover"). Empates são decididos
// por sorteio uniforme.
func minimizeWithBound(liabilities []int64, total int64, rng *rand.Rand) int {
	bound := total * netLossBoundNum / netLossBoundDen

	var within []int
	for i, l := range liabilities {
		if l <= bound {
			within = append(within, i)
		}
	}

	candidates := within
	if len(candidates) == 0 {
		candidates = make([]int, len(liabilities))
		for i := range liabilities {
			candidates[i] = i
		}
	}

	best := []int{candidates[0]}
	for _, i := range candidates[1:] {
		switch {
		case liabilities[i] < liabilities[best[0]]:
			best = []int{i}
		case liabilities[i] == liabilities[best[0]]:
			best = append(best, i)
		}
	}
	return best[rng.Intn(len(best))]
}

// Payout resolve o pagamento de uma aposta contra o resultado fechado da
// rodada. Usado pelo settlement; retorna 0 quando a seleção não casa.
// Para crash, toda aposta ainda PENDING no momento do crash perde.
func Payout(family game.Family, selection, outcome string, stakeCents int64) int64 {
	switch family {
	case game.FamilyWingo:
		n, err := strconv.Atoi(outcome)
		if err != nil {
			return 0
		}
		return WingoPayoutCents(selection, n, stakeCents)
	case game.FamilyLuckyPair:
		return PairPayoutCents(selection, outcome, stakeCents)
	default:
		return 0
	}
}
