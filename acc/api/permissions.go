package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/acc-community/acc/acc/database/models"
)

var (
	userGrantSchema = Schema{
		{Name: "userId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
		{Name: "permission", Type: FieldString, Required: true, MinLen: 1, MaxLen: 100},
		{Name: "granted", Type: FieldBool, Required: true},
	}
	groupGrantSchema = Schema{
		{Name: "groupId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
		{Name: "permission", Type: FieldString, Required: true, MinLen: 1, MaxLen: 100},
		{Name: "granted", Type: FieldBool, Required: true},
	}
)

// GrantUserPermission handles v1/admin/permissions/grant-user. A grant
// with granted=false is an explicit deny, which outranks any group
// grant the user holds.
func (h *Handlers) GrantUserPermission(c *fiber.Ctx) error {
	if _, err := h.requirePermissionsManage(c); err != nil {
		return err
	}
	params, err := parseBody(c, userGrantSchema)
	if err != nil {
		return err
	}

	targetID := params.Int("userId")
	grant := &models.UserPermission{
		UserID:     targetID,
		Permission: params.String("permission"),
		Granted:    params.Bool("granted"),
	}
	if err := h.Perms.GrantUser(c.UserContext(), grant); err != nil {
		return err
	}

	h.Oracle.Invalidate(targetID)
	return c.JSON(fiber.Map{"ok": true})
}

// GrantGroupPermission handles v1/admin/permissions/grant-group.
func (h *Handlers) GrantGroupPermission(c *fiber.Ctx) error {
	if _, err := h.requirePermissionsManage(c); err != nil {
		return err
	}
	params, err := parseBody(c, groupGrantSchema)
	if err != nil {
		return err
	}

	grant := &models.GroupPermission{
		GroupID:    params.Int("groupId"),
		Permission: params.String("permission"),
		Granted:    params.Bool("granted"),
	}
	if err := h.Perms.GrantGroup(c.UserContext(), grant); err != nil {
		return err
	}

	h.Oracle.InvalidateAll()
	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handlers) requirePermissionsManage(c *fiber.Ctx) (*RequestContext, error) {
	rc, err := h.requestContext(c)
	if err != nil {
		return nil, err
	}
	if err := rc.Require(c.UserContext(), PermPermissionsManage); err != nil {
		return nil, err
	}
	return rc, nil
}
