package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	typeRefresh = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Identity is what an authenticated caller is allowed to act as.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

func (c *AccessClaims) Identity() (Identity, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("subject is not a uuid: %w", err)
	}
	return Identity{UserID: id, IsAdmin: c.Role == RoleAdmin}, nil
}

func RoleOf(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Pair is a freshly issued access/refresh token couple.
type Pair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}
