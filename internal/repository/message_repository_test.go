package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mail-service/internal/domain"
)

var messageRowColumns = []string{"id", "sender_id", "recipient_id", "subject", "body", "is_spam", "is_archived", "is_read", "created_at"}

func TestMessageRepositoryCreate(t *testing.T) {
	mock := newMockPool(t)
	repo := NewMessageRepository(mock)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO emails`)).
		WithArgs(int64(1), int64(2), "hi", "hello", true, false, false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), created))

	msg := &domain.Message{SenderID: 1, RecipientID: 2, Subject: "hi", Body: "hello", IsSpam: true}
	require.NoError(t, repo.Create(context.Background(), msg))
	assert.Equal(t, int64(10), msg.ID)
}

func TestMessageRepositoryCreateMissingRecipient(t *testing.T) {
	mock := newMockPool(t)
	repo := NewMessageRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO emails`)).
		WithArgs(int64(1), int64(99), "hi", "hello", false, false, false).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := repo.Create(context.Background(), &domain.Message{SenderID: 1, RecipientID: 99, Subject: "hi", Body: "hello"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessageRepositoryListInboxFilter(t *testing.T) {
	mock := newMockPool(t)
	repo := NewMessageRepository(mock)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	filter, ok := domain.FilterFor(domain.FolderInbox, 2)
	require.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM emails WHERE 1=1 AND recipient_id=$1 AND is_spam=$2 AND is_archived=$3 ORDER BY created_at DESC, id DESC`)).
		WithArgs(int64(2), false, false).
		WillReturnRows(pgxmock.NewRows(messageRowColumns).
			AddRow(int64(5), int64(1), int64(2), "b", "body", false, false, false, created.Add(time.Minute)).
			AddRow(int64(4), int64(1), int64(2), "a", "body", false, false, true, created))

	msgs, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(5), msgs[0].ID)
	assert.True(t, msgs[1].IsRead)
}

func TestMessageRepositoryListEmpty(t *testing.T) {
	mock := newMockPool(t)
	repo := NewMessageRepository(mock)

	filter, _ := domain.FilterFor(domain.FolderSpam, 2)
	mock.ExpectQuery(regexp.QuoteMeta(`recipient_id=$1 AND is_spam=$2`)).
		WithArgs(int64(2), true).
		WillReturnRows(pgxmock.NewRows(messageRowColumns))

	msgs, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestMessageRepositoryUpdateAndDelete(t *testing.T) {
	mock := newMockPool(t)
	repo := NewMessageRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE emails SET is_archived=$1, is_read=$2 WHERE id=$3`)).
		WithArgs(true, false, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM emails WHERE id=$1`)).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM emails WHERE id=$1`)).
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.UpdateFlags(context.Background(), &domain.Message{ID: 7, IsArchived: true}))
	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.ErrorIs(t, repo.Delete(context.Background(), 7), ErrNotFound)
}

func TestPostgresStoreWithinTxCommits(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE emails SET is_archived=$1, is_read=$2 WHERE id=$3`)).
		WithArgs(false, true, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx Store) error {
		return tx.Messages().UpdateFlags(context.Background(), &domain.Message{ID: 1, IsRead: true})
	})
	require.NoError(t, err)
}

func TestPostgresStoreWithinTxRollsBack(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx Store) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPostgresStoreWithinTxBeginFailure(t *testing.T) {
	mock := newMockPool(t)
	store := NewPostgresStore(mock)

	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err := store.WithinTx(context.Background(), func(tx Store) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
