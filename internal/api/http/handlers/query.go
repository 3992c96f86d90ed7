package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// parseTicketListOptions reads the common listing query parameters. Unknown
// sort columns are handled downstream by the repository whitelist.
func parseTicketListOptions(c *fiber.Ctx) (service.TicketListOptions, error) {
	opts := service.TicketListOptions{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Page:      parseIntQuery(c, "page", 1),
		PageSize:  parseIntQuery(c, "page_size", 20),
	}

	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(raw)
		if !domain.ValidStatus(status) {
			return opts, apperrors.NewValidationError("invalid status filter", map[string]any{"status": raw})
		}
		opts.Status = &status
	}
	if raw := c.Query("search"); raw != "" {
		opts.SearchTerm = &raw
	}
	if raw := c.Query("created_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, apperrors.NewValidationError("invalid created_from, expected RFC3339", nil)
		}
		opts.CreatedFrom = &from
	}
	if raw := c.Query("created_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, apperrors.NewValidationError("invalid created_to, expected RFC3339", nil)
		}
		opts.CreatedTo = &to
	}
	return opts, nil
}

func parseIntQuery(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
