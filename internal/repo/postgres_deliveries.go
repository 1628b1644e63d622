package repo

import (
	"context"
	"database/sql"

	"github.com/EngOREOO/whats-app-front/internal/model"
)

type PostgresDeliveryRepo struct {
	db *sql.DB
}

func NewPostgresDeliveryRepo(db *sql.DB) *PostgresDeliveryRepo {
	return &PostgresDeliveryRepo{db: db}
}

// Init creates the deliveries table if it does not exist yet. One row per
// processed record; (job_id, seq) identifies the record within its job.
func (r *PostgresDeliveryRepo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS deliveries (
			id                BIGSERIAL PRIMARY KEY,
			job_id            TEXT        NOT NULL,
			seq               INT         NOT NULL,
			recipient_phone   TEXT        NOT NULL,
			content           TEXT        NOT NULL,
			status            TEXT        NOT NULL,
			remote_message_id TEXT,
			last_error        TEXT,
			sent_at           TIMESTAMPTZ NOT NULL,
			UNIQUE (job_id, seq)
		)
	`)
	return err
}

func (r *PostgresDeliveryRepo) Append(ctx context.Context, d model.Delivery) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (job_id, seq, recipient_phone, content, status,
		                        remote_message_id, last_error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.JobID, d.Seq, d.RecipientPhone, d.Content, string(d.Status),
		d.RemoteMessageID, d.LastError, d.SentAt)
	return err
}

func (r *PostgresDeliveryRepo) ListSent(ctx context.Context, limit, offset int) ([]model.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, seq, recipient_phone, content, status,
		       remote_message_id, last_error, sent_at
		FROM deliveries
		WHERE status = 'sent'
		ORDER BY sent_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Delivery
	for rows.Next() {
		var d model.Delivery
		var status string
		var remoteID sql.NullString
		var lastErr sql.NullString

		if err := rows.Scan(
			&d.ID,
			&d.JobID,
			&d.Seq,
			&d.RecipientPhone,
			&d.Content,
			&status,
			&remoteID,
			&lastErr,
			&d.SentAt,
		); err != nil {
			return nil, err
		}

		d.Status = model.DeliveryStatus(status)

		if remoteID.Valid {
			s := remoteID.String
			d.RemoteMessageID = &s
		}
		if lastErr.Valid {
			s := lastErr.String
			d.LastError = &s
		}

		out = append(out, d)
	}
	return out, rows.Err()
}
