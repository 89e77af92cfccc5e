package api

import (
	"context"

	"github.com/acc-community/acc/acc/permissions"
	"github.com/gofiber/fiber/v2"
)

const localsUserKey = "acc_user_id"

// RequestContext bundles the caller identity with the permission
// capability. Handlers receive it instead of reading ambient state.
type RequestContext struct {
	UserID int64
	oracle *permissions.Oracle
}

// Require resolves a permission for the caller and returns a uniform
// permission error when it is not granted.
func (rc *RequestContext) Require(ctx context.Context, permission string) error {
	granted, err := rc.oracle.Has(ctx, rc.UserID, permission)
	if err != nil {
		return err
	}
	if !granted {
		return NewUserError(KindPermission, "permission-denied")
	}
	return nil
}

// Can is Require without the error surface, for handlers that shape
// output differently for privileged callers.
func (rc *RequestContext) Can(ctx context.Context, permission string) bool {
	granted, err := rc.oracle.Has(ctx, rc.UserID, permission)
	return err == nil && granted
}

// requestContext pulls the authenticated caller out of fiber locals.
// Routes behind the auth middleware always have one.
func (h *Handlers) requestContext(c *fiber.Ctx) (*RequestContext, error) {
	userID, ok := c.Locals(localsUserKey).(int64)
	if !ok || userID == 0 {
		return nil, NewUserError(KindPermission, "not-authenticated")
	}
	return &RequestContext{UserID: userID, oracle: h.Oracle}, nil
}
