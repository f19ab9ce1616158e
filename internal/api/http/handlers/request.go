package handlers

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/mail-service/pkg/util/errorutil"
)

// parseBody decodes the JSON body into out. An empty body leaves out zeroed
// so the service reports the missing fields.
func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
