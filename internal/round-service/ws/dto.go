package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Game: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type string `json:"type"` // subscribe | unsubscribe | ping
	Game string `json:"game"` // requerido em subscribe/unsubscribe
}

// RoundEvent representa um evento de rodada enviado para clientes WebSocket
type RoundEvent struct {
	Game    string      `json:"game"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
