package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/radieske/game-rounds-poc/internal/round-service/game"
)

var (
	ErrOutcomeAlreadySet = errors.New("outcome already set")
	ErrRoundNotFound     = errors.New("round not found")
)

// Postgres implementa o RoundStore: rodadas, apostas e transições de
// status via compare-and-set no banco.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de rodadas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateRound insere uma nova rodada com o status inicial da família.
func (p *Postgres) CreateRound(ctx context.Context, r *Round) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds (family, id, status, opened_at, closes_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (family, id) DO NOTHING`,
		r.Family, r.ID, r.Status, r.OpenedAt, r.ClosesAt,
	)
	return err
}

// SetStatus avança o status de uma rodada.
func (p *Postgres) SetStatus(ctx context.Context, family game.Family, roundID int64, status string) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE rounds SET status=$1, updated_at=NOW() WHERE family=$2 AND id=$3`,
		status, family, roundID)
	return err
}

// SetOutcome grava o resultado de uma rodada exatamente uma vez: o WHERE
// outcome IS NULL torna a escrita idempotente e imutável. Se já houver
// resultado gravado, a chamada repetida não altera nada.
func (p *Postgres) SetOutcome(ctx context.Context, family game.Family, roundID int64, outcome string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET outcome=$1, status=$2, updated_at=NOW()
		WHERE family=$3 AND id=$4 AND outcome IS NULL`,
		outcome, game.StatusSettling, family, roundID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// ou a rodada não existe, ou o resultado já estava gravado
		var existing sql.NullString
		err := p.db.QueryRowContext(ctx,
			`SELECT outcome FROM rounds WHERE family=$1 AND id=$2`, family, roundID).Scan(&existing)
		if err == sql.ErrNoRows {
			return ErrRoundNotFound
		}
		if err != nil {
			return err
		}
		if existing.Valid && existing.String != outcome {
			return ErrOutcomeAlreadySet
		}
	}
	return nil
}

// RoundOutcome lê o resultado já gravado de uma rodada, se houver.
func (p *Postgres) RoundOutcome(ctx context.Context, family game.Family, roundID int64) (string, bool, error) {
	var out sql.NullString
	err := p.db.QueryRowContext(ctx,
		`SELECT outcome FROM rounds WHERE family=$1 AND id=$2`, family, roundID).Scan(&out)
	if err == sql.ErrNoRows {
		return "", false, ErrRoundNotFound
	}
	if err != nil {
		return "", false, err
	}
	return out.String, out.Valid, nil
}

// CloseRound marca a rodada como CLOSED após a liquidação.
func (p *Postgres) CloseRound(ctx context.Context, family game.Family, roundID int64) error {
	return p.SetStatus(ctx, family, roundID, game.StatusClosed)
}

// LastPeriod retorna o maior id de rodada da família (0 se não houver),
// usado para retomar a sequência diária após restart.
func (p *Postgres) LastPeriod(ctx context.Context, family game.Family) (int64, error) {
	var last sql.NullInt64
	err := p.db.QueryRowContext(ctx,
		`SELECT MAX(id) FROM rounds WHERE family=$1`, family).Scan(&last)
	if err != nil {
		return 0, err
	}
	return last.Int64, nil
}

// InsertBet insere uma aposta PENDING e devolve o id.
func (p *Postgres) InsertBet(ctx context.Context, b *Bet) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id, family, round_id, user_id, selection, stake_cents, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.Family, b.RoundID, b.UserID, b.Selection, b.StakeCents, game.BetPending,
	)
	if err != nil {
		return "", err
	}
	return b.ID, nil
}

// BetsForRound retorna todas as apostas de uma rodada.
func (p *Postgres) BetsForRound(ctx context.Context, family game.Family, roundID int64) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, family, round_id, user_id, selection, stake_cents, status, payout_cents, cashout_multiplier, created_at
		FROM bets WHERE family=$1 AND round_id=$2 ORDER BY created_at`,
		family, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.Family, &b.RoundID, &b.UserID, &b.Selection,
			&b.StakeCents, &b.Status, &b.PayoutCents, &b.CashoutMultiplier, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SettleBet aplica a transição terminal de uma aposta via compare-and-set:
// só sai de PENDING, exatamente uma vez. Retorna false se outra transição
// já venceu (liquidação repetida ou cash-out concorrente).
func (p *Postgres) SettleBet(ctx context.Context, betID, status string, payoutCents int64) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET status=$1, payout_cents=$2, updated_at=NOW()
		WHERE id=$3 AND status=$4`,
		status, payoutCents, betID, game.BetPending)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CashoutBet faz o cash-out da aposta PENDING do usuário na rodada, no
// multiplicador corrente, com o payout computado na própria instrução.
// O compare-and-set em status garante que no máximo uma dentre
// {liquidação do crash, cash-out} vence para cada aposta.
func (p *Postgres) CashoutBet(ctx context.Context, family game.Family, roundID int64, userID string, multiplier float64) (betID string, payoutCents int64, err error) {
	err = p.db.QueryRowContext(ctx, `
		UPDATE bets SET status=$1,
		       cashout_multiplier=$2,
		       payout_cents=ROUND(stake_cents * $2)::bigint,
		       updated_at=NOW()
		WHERE id = (
			SELECT id FROM bets
			WHERE family=$3 AND round_id=$4 AND user_id=$5 AND status=$6
			ORDER BY created_at LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, payout_cents`,
		game.BetCashedOut, multiplier, family, roundID, userID, game.BetPending,
	).Scan(&betID, &payoutCents)
	if err == sql.ErrNoRows {
		return "", 0, game.ErrNoPendingBet
	}
	if err != nil {
		return "", 0, err
	}
	return betID, payoutCents, nil
}

// StakeSummary agrega o total apostado por candidato na rodada aberta
// (apoio à decisão do operador).
func (p *Postgres) StakeSummary(ctx context.Context, family game.Family, roundID int64) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT selection, SUM(stake_cents) FROM bets
		WHERE family=$1 AND round_id=$2 GROUP BY selection`,
		family, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var sel string
		var total int64
		if err := rows.Scan(&sel, &total); err != nil {
			return nil, err
		}
		out[sel] = total
	}
	return out, rows.Err()
}

// RoundTotals retorna o total apostado e o total já pago de uma rodada.
func (p *Postgres) RoundTotals(ctx context.Context, family game.Family, roundID int64) (stakedCents, paidCents int64, err error) {
	err = p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(stake_cents),0), COALESCE(SUM(payout_cents),0)
		FROM bets WHERE family=$1 AND round_id=$2`,
		family, roundID).Scan(&stakedCents, &paidCents)
	return stakedCents, paidCents, err
}

// RecentResults lista rodadas encerradas, mais recentes primeiro.
func (p *Postgres) RecentResults(ctx context.Context, family game.Family, limit int) ([]RoundResult, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, outcome, updated_at FROM rounds
		WHERE family=$1 AND outcome IS NOT NULL
		ORDER BY id DESC LIMIT $2`,
		family, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoundResult
	for rows.Next() {
		var r RoundResult
		if err := rows.Scan(&r.RoundID, &r.Outcome, &r.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
