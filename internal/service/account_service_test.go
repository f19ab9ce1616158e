package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/mail-service/internal/auth"
	"github.com/spec-kit/mail-service/internal/events"
	"github.com/spec-kit/mail-service/internal/repository"
	"github.com/spec-kit/mail-service/internal/repository/memory"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

type recordingDispatcher struct {
	events.Dispatcher
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(nil)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

func newAccountService(t *testing.T) (*AccountService, *memory.Store, *recordingDispatcher) {
	t.Helper()
	store := memory.NewStore()
	dispatcher := newRecordingDispatcher()
	svc := NewAccountService(AccountDependencies{
		Store:      store,
		Hasher:     auth.BcryptHasher{Cost: bcrypt.MinCost},
		Dispatcher: dispatcher,
	})
	return svc, store, dispatcher
}

func register(t *testing.T, svc *AccountService, username, email, password string) int64 {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	return user.ID
}

func TestRegisterStoresDigestOnly(t *testing.T) {
	svc, store, dispatcher := newAccountService(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@x.com", Password: "pw1", ConfirmPassword: "pw1",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "pw1", user.PasswordHash)

	stored, err := store.Users().GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("pw1")))
	assert.Equal(t, []events.EventType{events.EventUserRegistered}, dispatcher.types())
}

func TestRegisterDuplicatesConflict(t *testing.T) {
	svc, _, _ := newAccountService(t)
	register(t, svc, "alice", "a@x.com", "pw1")

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "b@x.com", Password: "pw2", ConfirmPassword: "pw2",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, "Username already exists", apperrors.ToDomainError(err).Message)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "carol", Email: "a@x.com", Password: "pw2", ConfirmPassword: "pw2",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, "Email already exists", apperrors.ToDomainError(err).Message)
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
}

func TestRegisterValidationOrder(t *testing.T) {
	svc, _, _ := newAccountService(t)
	register(t, svc, "alice", "a@x.com", "pw1")

	tests := []struct {
		name    string
		in      RegisterInput
		code    string
		message string
	}{
		{
			name:    "duplicate username wins over missing fields",
			in:      RegisterInput{Username: "alice"},
			code:    apperrors.CodeConflict,
			message: "Username already exists",
		},
		{
			name:    "duplicate email wins over mismatch",
			in:      RegisterInput{Username: "bob", Email: "a@x.com", Password: "x", ConfirmPassword: "y"},
			code:    apperrors.CodeConflict,
			message: "Email already exists",
		},
		{
			name:    "missing field",
			in:      RegisterInput{Username: "bob", Email: "b@x.com", Password: "x"},
			code:    apperrors.CodeBadInput,
			message: "Missing required fields",
		},
		{
			name:    "mismatch",
			in:      RegisterInput{Username: "bob", Email: "b@x.com", Password: "x", ConfirmPassword: "y"},
			code:    apperrors.CodeBadInput,
			message: "Passwords do not match",
		},
		{
			name:    "username longer than its column",
			in:      RegisterInput{Username: strings.Repeat("b", 81), Email: "b@x.com", Password: "x", ConfirmPassword: "x"},
			code:    apperrors.CodeBadInput,
			message: "username must be at most 80 characters",
		},
		{
			name:    "email longer than its column",
			in:      RegisterInput{Username: "bob", Email: strings.Repeat("b", 115) + "@x.com", Password: "x", ConfirmPassword: "x"},
			code:    apperrors.CodeBadInput,
			message: "email must be at most 120 characters",
		},
		{
			name:    "password beyond the bcrypt limit",
			in:      RegisterInput{Username: "bob", Email: "b@x.com", Password: strings.Repeat("p", 73), ConfirmPassword: strings.Repeat("p", 73)},
			code:    apperrors.CodeBadInput,
			message: "Password must be at most 72 bytes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			require.Error(t, err)
			domainErr := apperrors.ToDomainError(err)
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Equal(t, tt.message, domainErr.Message)
		})
	}
}

func TestRegisterRaceOnInsertIsConflict(t *testing.T) {
	svc, store, _ := newAccountService(t)
	store.FailOn(func(op string) error {
		if op == "users.create" {
			return &repository.DuplicateError{Field: "email"}
		}
		return nil
	})

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@x.com", Password: "pw", ConfirmPassword: "pw",
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Equal(t, "Email already exists", apperrors.ToDomainError(err).Message)
}

func TestRegisterPersistenceFailureIsInternal(t *testing.T) {
	svc, store, dispatcher := newAccountService(t)
	store.FailOn(func(op string) error {
		if op == "commit" {
			return errors.New("disk full")
		}
		return nil
	})

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "a@x.com", Password: "pw", ConfirmPassword: "pw",
	})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInternal, domainErr.Code)
	assert.Equal(t, "internal server error", domainErr.Message)
	assert.Empty(t, dispatcher.published)

	store.FailOn(nil)
	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestLoginDoesNotRevealWhichPartFailed(t *testing.T) {
	svc, _, _ := newAccountService(t)
	id := register(t, svc, "alice", "a@x.com", "pw1")

	user, err := svc.Login(context.Background(), "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)

	_, wrongPassword := svc.Login(context.Background(), "alice", "nope")
	_, unknownUser := svc.Login(context.Background(), "mallory", "pw1")
	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, apperrors.ToDomainError(wrongPassword).Code, apperrors.ToDomainError(unknownUser).Code)
	assert.Equal(t, apperrors.ToDomainError(wrongPassword).Message, apperrors.ToDomainError(unknownUser).Message)
	assert.Equal(t, 401, apperrors.ToDomainError(unknownUser).HTTPStatus)

	_, err = svc.Login(context.Background(), "", "pw1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadInput))
}

func TestChangePassword(t *testing.T) {
	svc, _, dispatcher := newAccountService(t)
	id := register(t, svc, "alice", "a@x.com", "pw1")
	ctx := context.Background()

	err := svc.ChangePassword(ctx, id, "", "pw2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeBadInput))

	err = svc.ChangePassword(ctx, id, "wrong", "pw2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	require.NoError(t, svc.ChangePassword(ctx, id, "pw1", "pw2"))
	_, err = svc.Login(ctx, "alice", "pw1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = svc.Login(ctx, "alice", "pw2")
	assert.NoError(t, err)

	assert.Equal(t, []events.EventType{events.EventUserRegistered, events.EventPasswordChanged}, dispatcher.types())
}

func TestPasswordLengthLimits(t *testing.T) {
	svc, store, _ := newAccountService(t)
	ctx := context.Background()

	// 80 two-byte runes fit the username column but 72 of them overflow bcrypt.
	user, err := svc.Register(ctx, RegisterInput{
		Username:        strings.Repeat("é", 80),
		Email:           "e@x.com",
		Password:        strings.Repeat("p", 72),
		ConfirmPassword: strings.Repeat("p", 72),
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, strings.Repeat("p", 72), strings.Repeat("é", 37))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadInput, apperrors.ToDomainError(err).Code)

	stored, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, strings.Repeat("p", 72), strings.Repeat("é", 36)))
}

func TestChangePasswordSameAsOldIsAlwaysBadInput(t *testing.T) {
	svc, _, _ := newAccountService(t)
	id := register(t, svc, "alice", "a@x.com", "pw1")

	for _, pw := range []string{"pw1", "not-the-password"} {
		err := svc.ChangePassword(context.Background(), id, pw, pw)
		require.Error(t, err)
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, apperrors.CodeBadInput, domainErr.Code)
		assert.Equal(t, "New password cannot be the same as old password", domainErr.Message)
	}
}

func TestChangePasswordRollsBackOnFailure(t *testing.T) {
	svc, store, _ := newAccountService(t)
	id := register(t, svc, "alice", "a@x.com", "pw1")
	store.FailOn(func(op string) error {
		if op == "users.update_password" {
			return errors.New("connection reset")
		}
		return nil
	})

	err := svc.ChangePassword(context.Background(), id, "pw1", "pw2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	store.FailOn(nil)
	_, err = svc.Login(context.Background(), "alice", "pw1")
	assert.NoError(t, err)
}

func TestListUsersAndCurrentUser(t *testing.T) {
	svc, _, _ := newAccountService(t)
	alice := register(t, svc, "alice", "a@x.com", "pw1")
	bob := register(t, svc, "bob", "b@x.com", "pw2")

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, alice, users[0].ID)
	assert.Equal(t, bob, users[1].ID)

	current, err := svc.CurrentUser(context.Background(), bob)
	require.NoError(t, err)
	assert.Equal(t, "bob", current.Username)

	_, err = svc.CurrentUser(context.Background(), 999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
