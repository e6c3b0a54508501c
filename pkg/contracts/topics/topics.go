package topics

const (
	// Rounds
	RoundClosed  = "round_closed"
	RoundSettled = "round_settled"

	// DLQs
	RoundClosedDLQ = "round_closed_dlq"
)
