package api

import (
	"github.com/gofiber/fiber/v2"
)

var listNotificationsSchema = Schema{
	{Name: "limit", Type: FieldInt, Min: 1, Max: 100},
}

// ListNotifications handles v1/notification/list.
func (h *Handlers) ListNotifications(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, listNotificationsSchema)
	if err != nil {
		return err
	}

	limit := int(params.Int("limit"))
	if limit == 0 {
		limit = 50
	}

	notifications, err := h.Notifications.GetUserNotifications(c.UserContext(), rc.UserID, limit)
	if err != nil {
		return err
	}
	unread, err := h.Notifications.CountUnread(c.UserContext(), rc.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unread":        unread,
	})
}

// MarkNotificationsRead handles v1/notification/read. An empty id list
// marks everything read.
func (h *Handlers) MarkNotificationsRead(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}

	var body struct {
		IDs []int64 `json:"ids"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return NewUserError(KindValidation, "malformed-body")
		}
	}

	if err := h.Notifications.MarkRead(c.UserContext(), rc.UserID, body.IDs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}
