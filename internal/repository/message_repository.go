package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mail-service/internal/domain"
)

// MessageRepository encapsulates message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Message, error)
	UpdateFlags(ctx context.Context, msg *domain.Message) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error)
}

type messageRepository struct {
	db DBTX
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

const messageColumns = `id, sender_id, recipient_id, subject, body, is_spam, is_archived, is_read, created_at`

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO emails (sender_id, recipient_id, subject, body, is_spam, is_archived, is_read)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		msg.SenderID,
		msg.RecipientID,
		msg.Subject,
		msg.Body,
		msg.IsSpam,
		msg.IsArchived,
		msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt)
	return translateError(err)
}

func (r *messageRepository) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM emails WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *messageRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Message, error) {
	const query = `SELECT ` + messageColumns + ` FROM emails WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *messageRepository) UpdateFlags(ctx context.Context, msg *domain.Message) error {
	const query = `UPDATE emails SET is_archived=$1, is_read=$2 WHERE id=$3`
	cmd, err := r.db.Exec(ctx, query, msg.IsArchived, msg.IsRead, msg.ID)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM emails WHERE id=$1`
	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *messageRepository) List(ctx context.Context, filter domain.MessageFilter) ([]domain.Message, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SenderID != nil {
		args = append(args, *filter.SenderID)
		clauses = append(clauses, fmt.Sprintf("sender_id=$%d", len(args)))
	}
	if filter.RecipientID != nil {
		args = append(args, *filter.RecipientID)
		clauses = append(clauses, fmt.Sprintf("recipient_id=$%d", len(args)))
	}
	if filter.IsSpam != nil {
		args = append(args, *filter.IsSpam)
		clauses = append(clauses, fmt.Sprintf("is_spam=$%d", len(args)))
	}
	if filter.IsArchived != nil {
		args = append(args, *filter.IsArchived)
		clauses = append(clauses, fmt.Sprintf("is_archived=$%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		clauses = append(clauses, fmt.Sprintf("is_read=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM emails WHERE %s ORDER BY created_at DESC, id DESC`,
		messageColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Message, error) {
	msg, err := scanMessage(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translateError(err)
	}
	return msg, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	if err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Subject,
		&msg.Body,
		&msg.IsSpam,
		&msg.IsArchived,
		&msg.IsRead,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &msg, nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	result := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *msg)
	}
	return result, rows.Err()
}
