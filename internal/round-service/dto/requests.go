package dto

type PlaceBetRequest struct {
	Game        string `json:"game"`      // "wingo" | "lucky_pair" | "crash"
	Selection   string `json:"selection"` // número, cor, par "i-j"; vazio para crash
	AmountCents int64  `json:"amount_cents"`
}

type CashoutRequest struct {
	Game string `json:"game"` // apenas "crash"
}

// Superfície de controle do operador

type PolicyUpdateRequest struct {
	Mode         string  `json:"mode"`          // AUTO | MANUAL
	ProfitTarget string  `json:"profit_target"` // MINIMIZE_PAYOUT | FAVOR_MAJORITY | TARGET_MARGIN
	TargetMargin float64 `json:"target_margin"`
	Enabled      *bool   `json:"enabled,omitempty"`
}

type OverrideRequest struct {
	Value string `json:"value"` // próximo resultado forçado (uso único)
}
