package api

import (
	"github.com/gofiber/fiber/v2"
)

var (
	userGetSchema = Schema{
		{Name: "userId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
	userBanSchema = Schema{
		{Name: "userId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
		{Name: "description", Type: FieldString, Required: true, Nullable: true, MaxLen: 500},
	}
)

// GetUser handles v1/users/get: public profile with a presigned avatar
// URL when one is stored.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, userGetSchema)
	if err != nil {
		return err
	}

	user, err := h.Users.GetByID(c.UserContext(), params.Int("userId"))
	if err != nil {
		return err
	}

	avatarURL := ""
	if user.AvatarKey != "" && h.Spaces != nil {
		avatarURL, err = h.Spaces.AvatarURL(c.UserContext(), user.ID)
		if err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{
		"id":         user.ID,
		"username":   user.Username,
		"bells":      user.Bells,
		"signature":  user.Signature,
		"banned":     user.Banned(),
		"lastActive": user.LastActive,
		"avatarUrl":  avatarURL,
	})
}

// AvatarUploadURL handles v1/users/avatar/upload-url: presigned PUT
// for the caller's own avatar. The key is stored immediately; the
// client uploads directly to Spaces.
func (h *Handlers) AvatarUploadURL(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}

	url, key, err := h.Spaces.AvatarUploadURL(c.UserContext(), rc.UserID)
	if err != nil {
		return err
	}
	if err := h.Users.UpdateAvatarKey(c.UserContext(), rc.UserID, key); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"uploadUrl": url,
		"key":       key,
	})
}

// DeleteAvatar handles v1/users/avatar/delete: removes the caller's
// stored avatar object and clears the key on the profile.
func (h *Handlers) DeleteAvatar(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}

	if err := h.Spaces.DeleteAvatar(c.UserContext(), rc.UserID); err != nil {
		return err
	}
	if err := h.Users.UpdateAvatarKey(c.UserContext(), rc.UserID, ""); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// BanUser handles v1/admin/users/ban. A null description lifts the
// ban.
func (h *Handlers) BanUser(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	if err := rc.Require(c.UserContext(), PermUsersBan); err != nil {
		return err
	}
	params, err := parseBody(c, userBanSchema)
	if err != nil {
		return err
	}

	targetID := params.Int("userId")
	if err := h.Users.SetBan(c.UserContext(), targetID, params.String("description")); err != nil {
		return err
	}

	// Cached grants for the target are stale the moment the ban lands.
	h.Oracle.Invalidate(targetID)
	return c.JSON(fiber.Map{"ok": true})
}
