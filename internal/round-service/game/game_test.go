package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextPeriodSameDay(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(202608300001), NextPeriod(now, 0))
	assert.Equal(t, int64(202608300043), NextPeriod(now, 202608300042))
}

func TestNextPeriodDateRollover(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 1, 0, time.UTC)
	// último período é do dia anterior: sequência recomeça
	assert.Equal(t, int64(202608310001), NextPeriod(now, 202608300120))
}

func TestNextPeriodMonotonic(t *testing.T) {
	now := time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC)
	last := int64(202608300001)
	for i := 0; i < 100; i++ {
		next := NextPeriod(now, last)
		assert.Greater(t, next, last)
		last = next
	}
}
