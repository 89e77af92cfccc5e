package api

import (
	"github.com/gofiber/fiber/v2"
)

var (
	ruleActionSchema = Schema{
		{Name: "ruleId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
	violationActionSchema = Schema{
		{Name: "violationId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
)

// ListRules handles v1/rules/current: every published rule with its
// violations, in rule-number order.
func (h *Handlers) ListRules(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}

	current, err := h.RuleRepo.GetCurrent(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(current)
}

// ExpireRule handles v1/admin/rule/expire.
func (h *Handlers) ExpireRule(c *fiber.Ctx) error {
	rc, err := h.requireRulesManage(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, ruleActionSchema)
	if err != nil {
		return err
	}

	if err := h.Rules.ExpireRule(c.UserContext(), rc.UserID, params.Int("ruleId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RestoreRule handles v1/admin/rule/restore.
func (h *Handlers) RestoreRule(c *fiber.Ctx) error {
	rc, err := h.requireRulesManage(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, ruleActionSchema)
	if err != nil {
		return err
	}

	if err := h.Rules.RestoreRule(c.UserContext(), rc.UserID, params.Int("ruleId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ExpireViolation handles v1/admin/rule/violation/expire.
func (h *Handlers) ExpireViolation(c *fiber.Ctx) error {
	rc, err := h.requireRulesManage(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, violationActionSchema)
	if err != nil {
		return err
	}

	if err := h.Rules.ExpireViolation(c.UserContext(), rc.UserID, params.Int("violationId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RestoreViolation handles v1/admin/rule/violation/restore.
func (h *Handlers) RestoreViolation(c *fiber.Ctx) error {
	rc, err := h.requireRulesManage(c)
	if err != nil {
		return err
	}
	params, err := parseBody(c, violationActionSchema)
	if err != nil {
		return err
	}

	if err := h.Rules.RestoreViolation(c.UserContext(), rc.UserID, params.Int("violationId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *Handlers) requireRulesManage(c *fiber.Ctx) (*RequestContext, error) {
	rc, err := h.requestContext(c)
	if err != nil {
		return nil, err
	}
	if err := rc.Require(c.UserContext(), PermRulesManage); err != nil {
		return nil, err
	}
	return rc, nil
}
