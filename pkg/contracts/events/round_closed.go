package events

// Evento publicado no tópico "round_closed" quando uma rodada fecha.
// O settlement-worker consome este evento para liquidar as apostas.
type RoundClosed struct {
	Family           string `json:"family"` // "wingo" | "lucky_pair" | "crash"
	RoundID          int64  `json:"round_id"`
	Outcome          string `json:"outcome"` // número, par "i-j" ou multiplicador de crash
	TotalStakedCents int64  `json:"total_staked_cents"`
	TsUnixMs         int64  `json:"ts_unix_ms"`
}
