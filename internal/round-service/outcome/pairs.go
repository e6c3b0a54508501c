package outcome

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Multiplicadores do sorteio de par
const (
	PairMultExact  = 40.0 // par exato
	PairMultNumber = 4.0  // número avulso contido no par sorteado
)

const pairRange = 10 // números 0..9

// PairKey normaliza um par não-ordenado para "i-j" com i < j.
func PairKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// AllPairs enumera o espaço de resultados: todos os pares não-ordenados
// distintos sobre 0..9 (45 candidatos), em ordem estável.
func AllPairs() []string {
	out := make([]string, 0, pairRange*(pairRange-1)/2)
	for i := 0; i < pairRange; i++ {
		for j := i + 1; j < pairRange; j++ {
			out = append(out, PairKey(i, j))
		}
	}
	return out
}

// ValidPairSelection aceita um par "i-j" (dígitos distintos) ou um número
// avulso 0..9, que é o agrupamento mais grosso (casa com qualquer par que
// o contenha).
func ValidPairSelection(sel string) bool {
	if i, j, ok := parsePair(sel); ok {
		return i != j
	}
	n, err := strconv.Atoi(sel)
	return err == nil && n >= 0 && n < pairRange && len(sel) == 1
}

// ValidPairOutcome aceita apenas um par "i-j" de dígitos distintos;
// número avulso é seleção, não resultado.
func ValidPairOutcome(out string) bool {
	i, j, ok := parsePair(out)
	return ok && i != j
}

func parsePair(sel string) (int, int, bool) {
	parts := strings.SplitN(sel, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	i, err1 := strconv.Atoi(parts[0])
	j, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || i < 0 || i >= pairRange || j < 0 || j >= pairRange {
		return 0, 0, false
	}
	return i, j, true
}

// PairPayoutCents computa o pagamento de uma seleção contra o par sorteado.
func PairPayoutCents(sel, drawn string, stakeCents int64) int64 {
	di, dj, ok := parsePair(drawn)
	if !ok {
		return 0
	}
	if i, j, ok := parsePair(sel); ok {
		if PairKey(i, j) == PairKey(di, dj) {
			return payoutCents(stakeCents, PairMultExact)
		}
		return 0
	}
	n, err := strconv.Atoi(sel)
	if err == nil && (n == di || n == dj) {
		return payoutCents(stakeCents, PairMultNumber)
	}
	return 0
}

// SelectPair escolhe o par sorteado minimizando o passivo da casa, com o
// mesmo limite opcional de perda líquida das demais famílias. Se nenhum
// par satisfaz o limite, sai o de menor perda. Com zero apostas, um par
// uniforme.
func SelectPair(bets []Stake, rng *rand.Rand) string {
	pairs := AllPairs()
	if len(bets) == 0 {
		return pairs[rng.Intn(len(pairs))]
	}

	liab := make([]int64, len(pairs))
	for idx, p := range pairs {
		for _, b := range bets {
			liab[idx] += PairPayoutCents(b.Selection, p, b.AmountCents)
		}
	}
	return pairs[minimizeWithBound(liab, totalStaked(bets), rng)]
}
