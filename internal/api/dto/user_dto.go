package dto

import (
	"github.com/spec-kit/mail-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserResponse is the public projection of an account.
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// NewUserResponse projects user without its password digest.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: formatTimestamp(user.CreatedAt),
	}
}

// NewUserResponses projects a list of users.
func NewUserResponses(users []domain.User) []UserResponse {
	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, NewUserResponse(&users[i]))
	}
	return items
}
