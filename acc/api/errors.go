// Package api exposes the versioned v1 handler surface over fiber.
// Handlers validate parameters against a declared schema, check
// permissions through the oracle, call into the domain services, and
// render uniform identifier-keyed errors.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/acc-community/acc/acc/database/repositories"
	"github.com/acc-community/acc/acc/rules"
	"github.com/acc-community/acc/acc/tradingpost"
	"github.com/acc-community/acc/acc/treasure"
	"github.com/gofiber/fiber/v2"
)

// ErrorKind buckets a user error for status-code mapping.
type ErrorKind int

const (
	KindPermission ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindValidation
	KindEnvironment
)

// UserError is the single user-facing error type. Identifiers key the
// message the UI renders; they are stable strings, not prose.
type UserError struct {
	Kind        ErrorKind
	Identifiers []string
}

func (e *UserError) Error() string {
	if len(e.Identifiers) == 0 {
		return "user error"
	}
	return e.Identifiers[0]
}

func NewUserError(kind ErrorKind, identifiers ...string) *UserError {
	return &UserError{Kind: kind, Identifiers: identifiers}
}

func (e *UserError) status() int {
	switch e.Kind {
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindEnvironment:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// translate maps domain sentinels onto user errors. Anything it does
// not recognize stays internal.
func translate(err error) *UserError {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr
	}

	switch {
	case errors.Is(err, repositories.ErrListingNotFound):
		return NewUserError(KindNotFound, "listing-not-found")
	case errors.Is(err, repositories.ErrOfferNotFound):
		return NewUserError(KindNotFound, "offer-not-found")
	case errors.Is(err, repositories.ErrUserNotFound):
		return NewUserError(KindNotFound, "user-not-found")
	case errors.Is(err, repositories.ErrRuleNotFound):
		return NewUserError(KindNotFound, "rule-not-found")
	case errors.Is(err, repositories.ErrViolationNotFound):
		return NewUserError(KindNotFound, "violation-not-found")
	case errors.Is(err, repositories.ErrNodeNotFound):
		return NewUserError(KindNotFound, "node-not-found")
	case errors.Is(err, repositories.ErrTreasureOfferNotFound):
		return NewUserError(KindNotFound, "treasure-offer-not-found")
	case errors.Is(err, repositories.ErrCatalogItemNotFound):
		return NewUserError(KindNotFound, "catalog-item-not-found")

	case errors.Is(err, tradingpost.ErrNotCreator),
		errors.Is(err, tradingpost.ErrNotParticipant),
		errors.Is(err, tradingpost.ErrNotOfferer):
		return NewUserError(KindPermission, "not-trade-participant")
	case errors.Is(err, tradingpost.ErrOwnOffer):
		return NewUserError(KindValidation, "own-listing-offer")
	case errors.Is(err, tradingpost.ErrOfferAccepted):
		return NewUserError(KindInvalidState, "offer-already-accepted")
	case errors.Is(err, tradingpost.ErrInvalidState):
		return NewUserError(KindInvalidState, "invalid-trade-state")
	case errors.Is(err, tradingpost.ErrCreatorActive):
		return NewUserError(KindInvalidState, "creator-still-active")
	case errors.Is(err, tradingpost.ErrWrongListing):
		return NewUserError(KindValidation, "wrong-listing")

	case errors.Is(err, treasure.ErrNotOwner):
		return NewUserError(KindPermission, "not-treasure-owner")
	case errors.Is(err, treasure.ErrNotEligible):
		return NewUserError(KindPermission, "treasure-not-eligible")
	case errors.Is(err, treasure.ErrOfferExpired):
		return NewUserError(KindInvalidState, "treasure-offer-expired")
	case errors.Is(err, treasure.ErrNotJackpot):
		return NewUserError(KindInvalidState, "not-jackpot-offer")
	case errors.Is(err, treasure.ErrAlreadyClaimed):
		return NewUserError(KindInvalidState, "treasure-already-claimed")

	case errors.Is(err, rules.ErrNotCurrent):
		return NewUserError(KindInvalidState, "invalid-rule-expire")
	case errors.Is(err, rules.ErrAlreadyPending):
		return NewUserError(KindInvalidState, "rule-expiration-pending")
	case errors.Is(err, rules.ErrNotPending):
		return NewUserError(KindInvalidState, "invalid-rule-restore")
	}

	return nil
}

// ErrorHandler is the fiber-level error handler. Domain and user
// errors render as identifier-keyed JSON; everything else is a 500
// with the detail kept out of the response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if userErr := translate(err); userErr != nil {
		return c.Status(userErr.status()).JSON(fiber.Map{
			"error": fiber.Map{
				"identifiers": userErr.Identifiers,
			},
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiber.Map{
				"identifiers": []string{"request-failed"},
			},
		})
	}

	slog.Error("Unhandled API error",
		slog.String("type", "api"),
		slog.String("path", c.Path()),
		slog.Any("error", err))
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
		"error": fiber.Map{
			"identifiers": []string{"internal-error"},
		},
	})
}
