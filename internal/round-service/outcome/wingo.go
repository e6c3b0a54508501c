package outcome

import (
	"math/rand"
	"strconv"

	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
)

// Multiplicadores do wingo
const (
	WingoMultExact  = 9.2  // número exato
	WingoMultColor  = 1.98 // Red/Green
	WingoMultViolet = 4.5  // Violet (0 e 5)
)

const (
	ColorRed    = "Red"
	ColorGreen  = "Green"
	ColorViolet = "Violet"
)

// WingoColors retorna as cores de um número: Red {1,3,7,9}, Green {2,4,6,8};
// 0 é Violet+Red e 5 é Violet+Green.
func WingoColors(n int) []string {
	switch n {
	case 1, 3, 7, 9:
		return []string{ColorRed}
	case 2, 4, 6, 8:
		return []string{ColorGreen}
	case 0:
		return []string{ColorViolet, ColorRed}
	case 5:
		return []string{ColorViolet, ColorGreen}
	}
	return nil
}

// ValidWingoSelection aceita um dígito 0..9 ou um nome de cor.
func ValidWingoSelection(sel string) bool {
	switch sel {
	case ColorRed, ColorGreen, ColorViolet:
		return true
	}
	if len(sel) != 1 {
		return false
	}
	n, err := strconv.Atoi(sel)
	return err == nil && n >= 0 && n <= 9
}

// ValidWingoOutcome aceita apenas um número 0..9: cores são seleções,
// nunca resultados.
func ValidWingoOutcome(out string) bool {
	if len(out) != 1 {
		return false
	}
	n, err := strconv.Atoi(out)
	return err == nil && n >= 0 && n <= 9
}

// WingoPayoutCents computa o pagamento de uma seleção contra o número
// vencedor. Pertencimentos simultâneos a grupos são somados.
func WingoPayoutCents(sel string, winning int, stakeCents int64) int64 {
	var total int64
	if sel == strconv.Itoa(winning) {
		total += payoutCents(stakeCents, WingoMultExact)
	}
	for _, c := range WingoColors(winning) {
		if sel == c {
			mult := WingoMultColor
			if c == ColorViolet {
				mult = WingoMultViolet
			}
			total += payoutCents(stakeCents, mult)
		}
	}
	return total
}

// WingoLiabilities monta a tabela de passivo: para cada candidato 0..9,
// quanto a casa pagaria se ele saísse.
func WingoLiabilities(bets []Stake) [10]int64 {
	var out [10]int64
	for c := 0; c < 10; c++ {
		for _, b := range bets {
			out[c] += WingoPayoutCents(b.Selection, c, b.AmountCents)
		}
	}
	return out
}

// SelectWingo escolhe o número vencedor conforme o alvo de lucro da
// política. Nunca devolve "sem resultado": com zero apostas cai em um
// candidato uniforme.
func SelectWingo(bets []Stake, profitTarget string, rng *rand.Rand) int {
	if len(bets) == 0 {
		return rng.Intn(10)
	}
	if profitTarget == policy.TargetFavorMajority {
		return selectWingoMajority(bets, rng)
	}
	liab := WingoLiabilities(bets)
	return minimizeWithBound(liab[:], totalStaked(bets), rng)
}

// selectWingoMajority favorece o agrupamento (cor vs. número exato) com
// maior total apostado; desempata para o número exato mais apostado.
func selectWingoMajority(bets []Stake, rng *rand.Rand) int {
	colorTotals := map[string]int64{}
	var numberTotals [10]int64
	var colorSum, numberSum int64

	for _, b := range bets {
		if n, err := strconv.Atoi(b.Selection); err == nil && n >= 0 && n <= 9 {
			numberTotals[n] += b.AmountCents
			numberSum += b.AmountCents
			continue
		}
		colorTotals[b.Selection] += b.AmountCents
		colorSum += b.AmountCents
	}

	if colorSum > numberSum {
		// cor mais apostada; dentro dela, o número exato mais apostado
		top := ColorRed
		for _, c := range []string{ColorGreen, ColorViolet} {
			if colorTotals[c] > colorTotals[top] {
				top = c
			}
		}
		var candidates []int
		for n := 0; n < 10; n++ {
			for _, c := range WingoColors(n) {
				if c == top {
					candidates = append(candidates, n)
				}
			}
		}
		best := []int{candidates[0]}
		for _, n := range candidates[1:] {
			switch {
			case numberTotals[n] > numberTotals[best[0]]:
				best = []int{n}
			case numberTotals[n] == numberTotals[best[0]]:
				best = append(best, n)
			}
		}
		return best[rng.Intn(len(best))]
	}

	best := []int{0}
	for n := 1; n < 10; n++ {
		switch {
		case numberTotals[n] > numberTotals[best[0]]:
			best = []int{n}
		case numberTotals[n] == numberTotals[best[0]]:
			best = append(best, n)
		}
	}
	return best[rng.Intn(len(best))]
}
