package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stagegate/internal/job/models"
	id "stagegate/pkg/domain"
	"stagegate/pkg/platform/sentinel"
	txcontext "stagegate/pkg/platform/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id                  UUID PRIMARY KEY,
    title               TEXT NOT NULL,
    owner_id            UUID NOT NULL,
    status              TEXT NOT NULL,
    approval_status     TEXT NOT NULL,
    hidden              BOOLEAN NOT NULL DEFAULT FALSE,
    closed_early        BOOLEAN NOT NULL DEFAULT FALSE,
    admin_action_reason TEXT NOT NULL DEFAULT '',
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_visible_idx ON jobs (created_at DESC) WHERE NOT hidden AND approval_status = 'approved';
`

type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) conn(ctx context.Context) dbConn {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const jobColumns = `id, title, owner_id, status, approval_status, hidden, closed_early,
	admin_action_reason, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, j *models.Job) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		j.ID.String(), j.Title, j.OwnerID.String(), string(j.Status), string(j.ApprovalStatus),
		j.Hidden, j.ClosedEarly, j.AdminActionReason, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, jobID id.JobID) (*models.Job, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID.String())
	return scanJob(row)
}

func (s *Postgres) ListVisible(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE NOT hidden AND approval_status = 'approved'
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query visible jobs: %w", err)
	}
	defer rows.Close()

	var out []*models.Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Postgres) Execute(
	ctx context.Context,
	jobID id.JobID,
	validate func(j *models.Job) error,
	mutate func(j *models.Job),
) (*models.Job, error) {
	if _, ok := txcontext.From(ctx); ok {
		return s.executeLocked(ctx, jobID, validate, mutate)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	j, err := s.executeLocked(txcontext.WithTx(ctx, sqlTx), jobID, validate, mutate)
	if err != nil {
		_ = sqlTx.Rollback()
		return nil, err
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return j, nil
}

func (s *Postgres) executeLocked(
	ctx context.Context,
	jobID id.JobID,
	validate func(j *models.Job) error,
	mutate func(j *models.Job),
) (*models.Job, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, jobID.String())
	j, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(j); err != nil {
			return nil, err
		}
	}
	mutate(j)

	_, err = s.conn(ctx).ExecContext(ctx, `
		UPDATE jobs SET
			title = $2, status = $3, approval_status = $4, hidden = $5,
			closed_early = $6, admin_action_reason = $7, updated_at = $8
		WHERE id = $1`,
		j.ID.String(), j.Title, string(j.Status), string(j.ApprovalStatus), j.Hidden,
		j.ClosedEarly, j.AdminActionReason, j.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	return j, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row *sql.Row) (*models.Job, error) {
	j, err := scanJobFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return j, err
}

func scanJobRows(rows *sql.Rows) (*models.Job, error) {
	return scanJobFrom(rows)
}

func scanJobFrom(sc rowScanner) (*models.Job, error) {
	var (
		j        models.Job
		idStr    string
		ownerStr string
		status   string
		approval string
	)
	err := sc.Scan(&idStr, &j.Title, &ownerStr, &status, &approval,
		&j.Hidden, &j.ClosedEarly, &j.AdminActionReason, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}

	jobID, err := id.ParseJobID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	ownerID, err := id.ParseUserID(ownerStr)
	if err != nil {
		return nil, fmt.Errorf("parse job owner id: %w", err)
	}
	j.ID = jobID
	j.OwnerID = ownerID
	j.Status = models.Status(status)
	j.ApprovalStatus = models.ApprovalStatus(approval)
	return &j, nil
}
