package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"stagegate/internal/principal/models"
	"stagegate/internal/restriction"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
	txcontext "stagegate/pkg/platform/tx"
)

// Postgres implements Store on database/sql. Restriction state is kept as a
// JSONB document; the flat trust and payment fields are columns so feature
// queries (gate, listings) can filter on them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is applied by the migration runner.
const Schema = `
CREATE TABLE IF NOT EXISTS principals (
    id                 UUID PRIMARY KEY,
    email              TEXT NOT NULL,
    role               TEXT NOT NULL,
    verification_tier  TEXT NOT NULL DEFAULT '',
    trust_score        INT NOT NULL DEFAULT 0,
    restrictions       JSONB NOT NULL DEFAULT '{}',
    frozen             BOOLEAN NOT NULL DEFAULT FALSE,
    payment_confirmed  BOOLEAN NOT NULL DEFAULT FALSE,
    payment_reference  TEXT NOT NULL DEFAULT '',
    profile_completion INT NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL
);
`

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const principalColumns = `id, email, role, verification_tier, trust_score, restrictions,
	frozen, payment_confirmed, payment_reference, profile_completion, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, p *models.Principal) error {
	restrictions, err := json.Marshal(p.Restrictions)
	if err != nil {
		return fmt.Errorf("marshal restrictions: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO principals (`+principalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID.String(), p.Email, string(p.Role), string(p.VerificationTier), p.TrustScore,
		restrictions, p.Frozen, p.PaymentConfirmed, p.PaymentReference,
		p.ProfileCompletion, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.Principal, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+principalColumns+` FROM principals WHERE id = $1`, userID.String())
	return scanPrincipal(row)
}

// Execute locks the row with FOR UPDATE for the whole validate-then-mutate
// pair. When the context already carries a transaction (the service's
// RunInTx), the lock lives in that transaction and the audit append commits
// with the mutation; otherwise a local transaction is used.
func (s *Postgres) Execute(
	ctx context.Context,
	userID id.UserID,
	validate func(p *models.Principal) error,
	mutate func(p *models.Principal),
) (*models.Principal, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.executeLocked(ctx, userID, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	p, err := s.executeLocked(txcontext.WithTx(ctx, sqlTx), userID, validate, mutate)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return p, nil
}

func (s *Postgres) executeLocked(
	ctx context.Context,
	userID id.UserID,
	validate func(p *models.Principal) error,
	mutate func(p *models.Principal),
) (*models.Principal, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+principalColumns+` FROM principals WHERE id = $1 FOR UPDATE`, userID.String())
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(p); err != nil {
			return nil, err
		}
	}
	mutate(p)

	restrictions, err := json.Marshal(p.Restrictions)
	if err != nil {
		return nil, fmt.Errorf("marshal restrictions: %w", err)
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		UPDATE principals SET
			email = $2, role = $3, verification_tier = $4, trust_score = $5,
			restrictions = $6, frozen = $7, payment_confirmed = $8,
			payment_reference = $9, profile_completion = $10, updated_at = $11
		WHERE id = $1`,
		p.ID.String(), p.Email, string(p.Role), string(p.VerificationTier), p.TrustScore,
		restrictions, p.Frozen, p.PaymentConfirmed, p.PaymentReference,
		p.ProfileCompletion, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update principal: %w", err)
	}
	return p, nil
}

func scanPrincipal(row *sql.Row) (*models.Principal, error) {
	var (
		p            models.Principal
		idStr        string
		role         string
		tier         string
		restrictions []byte
	)
	err := row.Scan(&idStr, &p.Email, &role, &tier, &p.TrustScore, &restrictions,
		&p.Frozen, &p.PaymentConfirmed, &p.PaymentReference,
		&p.ProfileCompletion, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan principal: %w", err)
	}

	userID, err := id.ParseUserID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse principal id: %w", err)
	}
	p.ID = userID
	p.Role = models.Role(role)
	p.VerificationTier = models.VerificationTier(tier)
	p.Restrictions = restriction.State{}
	if len(restrictions) > 0 {
		if err := json.Unmarshal(restrictions, &p.Restrictions); err != nil {
			return nil, fmt.Errorf("unmarshal restrictions: %w", err)
		}
	}
	return &p, nil
}
