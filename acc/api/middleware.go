package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/acc-community/acc/acc/logger"
)

// SessionResolver turns a bearer token into a user id. Account storage
// lives in a separate system; this is the only surface we see of it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// SessionAuth resolves the Authorization header into the caller's user
// id. Requests without a valid session never reach the handlers.
func SessionAuth(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if token == "" {
			return NewUserError(KindPermission, "not-authenticated")
		}

		userID, err := sessions.Resolve(c.UserContext(), token)
		if err != nil || userID == 0 {
			return NewUserError(KindPermission, "not-authenticated")
		}

		c.Locals(localsUserKey, userID)
		return c.Next()
	}
}

// EnvironmentGate rejects the automation/test endpoints outside of
// development deployments.
func EnvironmentGate(isProduction bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isProduction {
			return NewUserError(KindEnvironment, "environment-gated")
		}
		return c.Next()
	}
}

// RequestLogging logs one line per request with path, status and
// timing, in the project's slog shape.
func RequestLogging() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.LogRequest(c.Method(), c.Path(), c.Response().StatusCode(), time.Since(start), err)
		return err
	}
}
