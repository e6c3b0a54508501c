package repo

import (
	"database/sql"
	"time"
)

// Round é o registro persistido de uma rodada.
type Round struct {
	Family   string
	ID       int64
	Status   string
	OpenedAt time.Time
	ClosesAt time.Time
	Outcome  sql.NullString // nulo até a rodada fechar; gravado uma única vez
}

// Bet é o registro persistido de uma aposta.
type Bet struct {
	ID                string
	Family            string
	RoundID           int64
	UserID            string
	Selection         string // vazio para rodadas contínuas
	StakeCents        int64
	Status            string
	PayoutCents       int64
	CashoutMultiplier sql.NullFloat64
	CreatedAt         time.Time
}

// RoundResult é a visão de histórico de uma rodada encerrada.
type RoundResult struct {
	RoundID  int64     `json:"round_id"`
	Outcome  string    `json:"outcome"`
	ClosedAt time.Time `json:"closed_at"`
}
