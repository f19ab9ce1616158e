package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher turns passwords into one-way digests and checks them.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashed, plain string) bool
}

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	return HashPassword(password, h.Cost)
}

func (h BcryptHasher) Verify(hashed, plain string) bool {
	return ComparePassword(hashed, plain) == nil
}

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
