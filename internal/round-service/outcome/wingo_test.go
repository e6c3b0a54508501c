package outcome

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/game-rounds-poc/internal/round-service/policy"
)

func TestWingoColors(t *testing.T) {
	assert.Equal(t, []string{ColorRed}, WingoColors(3))
	assert.Equal(t, []string{ColorGreen}, WingoColors(8))
	assert.Equal(t, []string{ColorViolet, ColorRed}, WingoColors(0))
	assert.Equal(t, []string{ColorViolet, ColorGreen}, WingoColors(5))
}

func TestValidWingoSelection(t *testing.T) {
	for _, sel := range []string{"0", "9", "Red", "Green", "Violet"} {
		assert.True(t, ValidWingoSelection(sel), sel)
	}
	for _, sel := range []string{"", "10", "-1", "red", "blue", "3-7"} {
		assert.False(t, ValidWingoSelection(sel), sel)
	}
}

func TestWingoPayout(t *testing.T) {
	// número exato: 9.2x
	assert.Equal(t, int64(92000), WingoPayoutCents("3", 3, 10000))
	// cor: 1.98x
	assert.Equal(t, int64(19800), WingoPayoutCents("Red", 7, 10000))
	// Violet: 4.5x
	assert.Equal(t, int64(45000), WingoPayoutCents("Violet", 0, 10000))
	// 0 também é Red
	assert.Equal(t, int64(19800), WingoPayoutCents("Red", 0, 10000))
	// sem casamento
	assert.Equal(t, int64(0), WingoPayoutCents("Green", 3, 10000))
	assert.Equal(t, int64(0), WingoPayoutCents("4", 3, 10000))
}

// Cenário do passivo: apostas {número 3: 100, Red: 100}. O passivo em 3 é
// 100*9.2 + 100*1.98 = 1118; em qualquer outro Red é 198; o seletor nunca
// pode escolher o 3.
func TestSelectWingoMinimizesLiability(t *testing.T) {
	bets := []Stake{
		{Selection: "3", AmountCents: 10000},
		{Selection: ColorRed, AmountCents: 10000},
	}

	liab := WingoLiabilities(bets)
	assert.Equal(t, int64(111800), liab[3])
	assert.Equal(t, int64(19800), liab[7])

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		winner := SelectWingo(bets, policy.TargetMinimizePayout, rng)
		require.NotEqual(t, 3, winner)
		// candidatos de passivo zero: Green puros e o 5 (Violet+Green)
		assert.Contains(t, []int{2, 4, 5, 6, 8}, winner)
	}
}

func TestSelectWingoRespectsNetLossBound(t *testing.T) {
	// tudo apostado no Green: candidatos Red pagam zero e ficam dentro do
	// limite de 90% do total
	bets := []Stake{{Selection: ColorGreen, AmountCents: 50000}}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		winner := SelectWingo(bets, policy.TargetMinimizePayout, rng)
		assert.NotContains(t, []int{2, 4, 6, 8, 5}, winner)
	}
}

func TestSelectWingoZeroBetsFallsBackToRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		n := SelectWingo(nil, policy.TargetMinimizePayout, rng)
		require.GreaterOrEqual(t, n, 0)
		require.LessOrEqual(t, n, 9)
		seen[n] = true
	}
	assert.Len(t, seen, 10, "uniforme deve cobrir todo o espaço")
}

func TestSelectWingoMajorityFavorsTopColor(t *testing.T) {
	// cores dominam (300 em Red) sobre números exatos (100 no 2)
	bets := []Stake{
		{Selection: ColorRed, AmountCents: 30000},
		{Selection: "2", AmountCents: 10000},
	}
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		winner := SelectWingo(bets, policy.TargetFavorMajority, rng)
		assert.Contains(t, WingoColors(winner), ColorRed)
	}
}

func TestSelectWingoMajorityFavorsTopNumber(t *testing.T) {
	// números exatos dominam: sai o mais apostado
	bets := []Stake{
		{Selection: "6", AmountCents: 50000},
		{Selection: "1", AmountCents: 10000},
		{Selection: ColorRed, AmountCents: 5000},
	}
	rng := rand.New(rand.NewSource(13))
	winner := SelectWingo(bets, policy.TargetFavorMajority, rng)
	assert.Equal(t, 6, winner)
}
