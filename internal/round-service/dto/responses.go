package dto

import "time"

type PlaceBetResponse struct {
	BetID   string `json:"betId"`
	RoundID int64  `json:"round_id"`
	Status  string `json:"status"` // PENDING
}

type CashoutResponse struct {
	BetID       string  `json:"betId"`
	Multiplier  float64 `json:"multiplier"`
	PayoutCents int64   `json:"payout_cents"`
}

// RoundState é o estado corrente de uma família para o polling REST.
type RoundState struct {
	Game            string   `json:"game"`
	Period          int64    `json:"period"`
	Status          string   `json:"status"`
	TimeLeftSeconds int64    `json:"time_left_seconds"`
	CanBet          bool     `json:"can_bet"`
	Multiplier      *float64 `json:"multiplier,omitempty"` // só para crash em RUNNING
}

type PolicyResponse struct {
	Game         string  `json:"game"`
	Mode         string  `json:"mode"`
	ProfitTarget string  `json:"profit_target"`
	TargetMargin float64 `json:"target_margin"`
	Enabled      bool    `json:"enabled"`
	HasOverride  bool    `json:"has_override"` // o valor em si não é exposto
}

type StakeSummaryResponse struct {
	Game    string           `json:"game"`
	Period  int64            `json:"period"`
	Summary map[string]int64 `json:"summary"` // candidato -> total em centavos
}

// Payloads do feed em tempo real

type TimerTickPayload struct {
	Period          int64 `json:"period"`
	TimeLeftSeconds int64 `json:"time_left_seconds"`
	CanBet          bool  `json:"can_bet"`
}

type RoundOpenedPayload struct {
	Period   int64     `json:"period"`
	Status   string    `json:"status"`
	ClosesAt time.Time `json:"closes_at"`
}

type BetAcceptedPayload struct {
	BetID      string `json:"betId"`
	Period     int64  `json:"period"`
	Selection  string `json:"selection,omitempty"`
	StakeCents int64  `json:"stake_cents"`
}

type RoundResultPayload struct {
	Period  int64  `json:"period"`
	Outcome string `json:"outcome"`
}

type MultiplierTickPayload struct {
	Period     int64   `json:"period"`
	Multiplier float64 `json:"multiplier"`
}

type CrashPayload struct {
	Period     int64   `json:"period"`
	CrashPoint float64 `json:"crash_point"`
}

type CashoutPayload struct {
	BetID       string  `json:"betId"`
	Period      int64   `json:"period"`
	Multiplier  float64 `json:"multiplier"`
	PayoutCents int64   `json:"payout_cents"`
}
