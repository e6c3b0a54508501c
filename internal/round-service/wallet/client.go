package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
)

// Client fala com o wallet-service (colaborador externo de saldo).
// O core nunca computa saldo: só debita-se-suficiente e credita.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

type moveRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref"`
}

// Debit debita o valor se houver saldo; insuficiência vira sentinela.
// externalRef (ex.: bet:<betID>) garante idempotência no wallet-service.
func (c *Client) Debit(ctx context.Context, userID string, cents int64, externalRef string) error {
	return c.post(ctx, "/wallet/debit", moveRequest{UserID: userID, AmountCents: cents, ExternalRef: externalRef})
}

// Credit credita o valor; idempotente por externalRef.
func (c *Client) Credit(ctx context.Context, userID string, cents int64, externalRef string) error {
	return c.post(ctx, "/wallet/credit", moveRequest{UserID: userID, AmountCents: cents, ExternalRef: externalRef})
}

func (c *Client) post(ctx context.Context, path string, body moveRequest) error {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	switch {
	case res.StatusCode == http.StatusPaymentRequired:
		return game.ErrInsufficientFunds
	case res.StatusCode >= 300:
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	return nil
}
