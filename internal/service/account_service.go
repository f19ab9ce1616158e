package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/mail-service/internal/auth"
	"github.com/spec-kit/mail-service/internal/domain"
	"github.com/spec-kit/mail-service/internal/events"
	"github.com/spec-kit/mail-service/internal/repository"
	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// AccountService coordinates registration, login and password flows.
type AccountService struct {
	store      repository.Store
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AccountDependencies encapsulates requirements for the account service.
type AccountDependencies struct {
	Store      repository.Store
	Hasher     auth.PasswordHasher
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		store:      deps.Store,
		hasher:     deps.Hasher,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Register creates an account. Duplicate checks run before field validation
// so the reported error is deterministic.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	users := s.store.Users()

	if _, err := users.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperrors.NewConflict("Username already exists", map[string]any{"field": "username"})
	} else if !isNotFound(err) {
		return nil, storeError(err)
	}
	if _, err := users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict("Email already exists", map[string]any{"field": "email"})
	} else if !isNotFound(err) {
		return nil, storeError(err)
	}
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, apperrors.NewValidationError(msgMissingFields, nil)
	}
	if err := tooLong("username", in.Username, maxUsernameLen); err != nil {
		return nil, err
	}
	if err := tooLong("email", in.Email, maxEmailLen); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.NewValidationError("Passwords do not match", nil)
	}
	if err := passwordTooLong("password", in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		var dup *repository.DuplicateError
		if errors.As(err, &dup) {
			return nil, duplicateConflict(dup.Field)
		}
		return nil, storeError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		UserID:   user.ID,
		Username: user.Username,
	}))
	return user, nil
}

func duplicateConflict(field string) error {
	switch field {
	case "email":
		return apperrors.NewConflict("Email already exists", map[string]any{"field": "email"})
	default:
		return apperrors.NewConflict("Username already exists", map[string]any{"field": "username"})
	}
}

// Login verifies credentials. Unknown users and wrong passwords produce the
// same error.
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, apperrors.NewValidationError(msgMissingFields, nil)
	}
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewUnauthorized("Invalid username or password")
		}
		return nil, storeError(err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("Invalid username or password")
	}
	return user, nil
}

// ChangePassword replaces the digest of userID after verifying oldPassword.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.NewValidationError(msgMissingFields, nil)
	}
	if oldPassword == newPassword {
		return apperrors.NewValidationError("New password cannot be the same as old password", nil)
	}
	if err := passwordTooLong("new_password", newPassword); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if user == nil || !s.hasher.Verify(user.PasswordHash, oldPassword) {
			return apperrors.NewUnauthorized("Old password is incorrect")
		}
		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return err
		}
		return tx.Users().UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		return storeError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, userID, events.PasswordChangedPayload{UserID: userID}))
	return nil
}

// ListUsers returns every account ordered by id.
func (s *AccountService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return users, nil
}

// CurrentUser resolves the account behind a session.
func (s *AccountService) CurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("User", nil)
		}
		return nil, storeError(err)
	}
	return user, nil
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
