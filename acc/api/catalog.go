package api

import (
	"github.com/acc-community/acc/acc/database/models"
	"github.com/gofiber/fiber/v2"
)

var (
	catalogSearchSchema = Schema{
		{Name: "query", Type: FieldString, MaxLen: 200},
		{Name: "limit", Type: FieldInt, Min: 1, Max: 200},
	}
	catalogGetSchema = Schema{
		{Name: "itemId", Type: FieldInt, Required: true, Min: 1, Max: 1 << 53},
	}
)

// SearchCatalog handles v1/catalog/search: fuzzy name match over the
// cached catalog.
func (h *Handlers) SearchCatalog(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, catalogSearchSchema)
	if err != nil {
		return err
	}

	limit := int(params.Int("limit"))
	if limit == 0 {
		limit = 50
	}

	items, err := h.Catalog.Search(c.UserContext(), params.String("query"), limit)
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// GetCatalogItem handles v1/catalog/get.
func (h *Handlers) GetCatalogItem(c *fiber.Ctx) error {
	if _, err := h.requestContext(c); err != nil {
		return err
	}
	params, err := parseBody(c, catalogGetSchema)
	if err != nil {
		return err
	}

	item, err := h.Catalog.Get(c.UserContext(), params.Int("itemId"))
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// ImportCatalog handles v1/catalog/import: bulk load, import
// permission required.
func (h *Handlers) ImportCatalog(c *fiber.Ctx) error {
	rc, err := h.requestContext(c)
	if err != nil {
		return err
	}
	if err := rc.Require(c.UserContext(), PermCatalogImport); err != nil {
		return err
	}

	var body struct {
		Items []*models.CatalogItem `json:"items"`
	}
	if err := c.BodyParser(&body); err != nil {
		return NewUserError(KindValidation, "malformed-body")
	}
	if len(body.Items) == 0 {
		return NewUserError(KindValidation, "invalid-items")
	}

	count, err := h.Catalog.Import(c.UserContext(), body.Items)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"imported": count})
}
