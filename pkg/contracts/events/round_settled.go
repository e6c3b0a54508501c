package events

import "time"

// Evento emitido pelo settlement-worker após liquidar uma rodada.
type RoundSettled struct {
	Family           string    `json:"family"`
	RoundID          int64     `json:"round_id"`
	Outcome          string    `json:"outcome"`
	BetsSettled      int       `json:"bets_settled"`
	TotalPayoutCents int64     `json:"total_payout_cents"`
	Ts               time.Time `json:"ts"`
}
