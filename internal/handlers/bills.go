package handlers

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/statehouse/internal/model"
	"github.com/jjenkins/statehouse/internal/store"
)

const dateLayout = "2006-01-02"

// billResponse is the JSON shape served for a bill
type billResponse struct {
	ID                      int             `json:"id"`
	ExternalID              string          `json:"external_id"`
	Chamber                 string          `json:"chamber"`
	Session                 string          `json:"session"`
	Identifier              string          `json:"identifier"`
	Title                   string          `json:"title"`
	StateID                 int             `json:"state_id"`
	LegislationType         []string        `json:"legislation_type"`
	Subjects                []string        `json:"subjects"`
	LatestActionDescription string          `json:"latest_action_description"`
	IntroducedAt            *string         `json:"introduced_at"`
	LatestActionDate        *string         `json:"latest_action_date"`
	RawPayload              json.RawMessage `json:"raw_payload,omitempty"`
}

func toBillResponse(b model.Bill, includePayload bool) billResponse {
	resp := billResponse{
		ID:                      b.ID,
		ExternalID:              b.ExternalID,
		Chamber:                 b.Chamber,
		Session:                 b.Session,
		Identifier:              b.Identifier,
		Title:                   b.Title,
		StateID:                 b.StateID,
		LegislationType:         b.LegislationType,
		Subjects:                b.Subjects,
		LatestActionDescription: b.LatestActionDescription,
	}
	if b.IntroducedAt.Valid {
		d := b.IntroducedAt.Time.Format(dateLayout)
		resp.IntroducedAt = &d
	}
	if b.LatestActionDate.Valid {
		d := b.LatestActionDate.Time.Format(dateLayout)
		resp.LatestActionDate = &d
	}
	if includePayload {
		resp.RawPayload = b.RawPayload
	}
	return resp
}

// BillsHandler serves a paged bill listing
func BillsHandler(billStore *store.BillStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil || limit < 1 || limit > 100 {
			limit = 20
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		bills, err := billStore.GetPage(ctx, limit, offset)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load bills"})
		}

		total, err := billStore.CountBills(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count bills"})
		}

		results := make([]billResponse, 0, len(bills))
		for _, b := range bills {
			results = append(results, toBillResponse(b, false))
		}

		return c.JSON(fiber.Map{
			"results": results,
			"total":   total,
			"limit":   limit,
			"offset":  offset,
		})
	}
}

// BillDetailHandler serves a single bill by external id, raw payload included
func BillDetailHandler(billStore *store.BillStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		externalID := c.Params("external_id")

		bill, err := billStore.GetByExternalID(ctx, externalID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load bill"})
		}
		if bill == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "bill not found"})
		}

		return c.JSON(toBillResponse(*bill, true))
	}
}

// actionResponse is the JSON shape served for a bill action
type actionResponse struct {
	Order             int     `json:"order"`
	OrgClassification string  `json:"org_classification"`
	OrgName           string  `json:"org_name"`
	Description       string  `json:"description"`
	Date              *string `json:"date"`
}

// BillActionsHandler serves a bill's action history ordered by action order
func BillActionsHandler(billStore *store.BillStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		externalID := c.Params("external_id")

		bill, err := billStore.GetByExternalID(ctx, externalID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load bill"})
		}
		if bill == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "bill not found"})
		}

		actions, err := billStore.GetActions(ctx, bill.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load actions"})
		}

		results := make([]actionResponse, 0, len(actions))
		for _, a := range actions {
			resp := actionResponse{
				Order:             a.Order,
				OrgClassification: a.OrgClassification,
				OrgName:           a.OrgName,
				Description:       a.Description,
			}
			if a.Date.Valid {
				d := a.Date.Time.Format(dateLayout)
				resp.Date = &d
			}
			results = append(results, resp)
		}

		return c.JSON(fiber.Map{"results": results})
	}
}
