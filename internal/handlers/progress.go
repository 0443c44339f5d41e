package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/statehouse/internal/store"
)

// progressResponse is the JSON shape served for a completion log entry
type progressResponse struct {
	JurisdictionID string    `json:"jurisdiction_id"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ProgressHandler serves the jurisdiction completion log
func ProgressHandler(progressStore *store.ProgressStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := progressStore.GetAll(context.Background())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load progress"})
		}

		results := make([]progressResponse, 0, len(entries))
		for _, p := range entries {
			results = append(results, progressResponse{
				JurisdictionID: p.JurisdictionID,
				CompletedAt:    p.CompletedAt,
			})
		}

		return c.JSON(fiber.Map{"results": results})
	}
}
