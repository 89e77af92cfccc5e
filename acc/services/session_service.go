package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/acc-community/acc/acc/database/repositories"
)

// SessionService resolves gateway session tokens to user ids. Account
// and session storage live in a separate system; the gateway in front
// of this API verifies the session and forwards the user id as the
// bearer token, so resolution here is a parse plus an existence check.
type SessionService struct {
	users repositories.UserRepository
}

func NewSessionService(users repositories.UserRepository) *SessionService {
	return &SessionService{users: users}
}

// Resolve validates the forwarded token and bumps the user's
// last-active timestamp.
func (s *SessionService) Resolve(ctx context.Context, token string) (int64, error) {
	userID, err := strconv.ParseInt(token, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("malformed session token")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.users.UpdateLastActive(ctx, userID); err != nil {
		return 0, err
	}
	return userID, nil
}
