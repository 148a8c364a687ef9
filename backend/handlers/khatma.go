package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type createKhatmaRequest struct {
	Name      string `json:"name"`
	AdminName string `json:"admin_name"`
	AdminPIN  string `json:"admin_pin"`
	Intention string `json:"intention"`
	Deadline  string `json:"deadline"`
}

// CreateKhatma provisions a new khatma with its admin participant.
func CreateKhatma(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createKhatmaRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.AdminName) == "" || req.AdminPIN == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
		}

		deadline := parseDeadline(req.Deadline)
		k, admin, err := app.Khatmas.Create(c.UserContext(), req.Name, req.AdminName, req.AdminPIN, req.Intention, deadline)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		return c.JSON(fiber.Map{"success": true, "khatma_id": k.ID, "admin_uid": admin.ID})
	}
}

// parseDeadline accepts the date formats web clients send and falls
// back to a week out.
func parseDeadline(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().AddDate(0, 0, 7)
}

type updateNameRequest struct {
	UID          flexID `json:"uid"`
	Name         string `json:"name"`
	RequesterUID flexID `json:"requester_uid"`
	KhatmaID     string `json:"khatma_id"`
}

// UpdateName lets a participant rename themselves, or an admin rename
// anyone in their khatma.
func UpdateName(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateNameRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if req.UID == 0 || req.RequesterUID == 0 || strings.TrimSpace(req.Name) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing required fields"})
		}

		ctx := c.UserContext()
		if req.UID != req.RequesterUID {
			isAdmin, err := app.Khatmas.IsAdmin(ctx, scopeID(req.KhatmaID), req.RequesterUID.Int64())
			if err != nil || !isAdmin {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
			}
		}

		if err := app.Identity.UpdateName(ctx, req.UID.Int64(), req.Name); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Name already taken"})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

type addIntentionRequest struct {
	UID      flexID `json:"uid"`
	Name     string `json:"name"`
	Text     string `json:"text"`
	KhatmaID string `json:"khatma_id"`
}

// AddIntention posts an entry on the intention wall.
func AddIntention(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req addIntentionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Text) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing data"})
		}

		if err := app.Intentions.Add(c.UserContext(), scopeID(req.KhatmaID), req.UID.Int64(), req.Name, req.Text); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

type deleteIntentionRequest struct {
	UID flexID `json:"uid"`
	ID  int64  `json:"id"`
}

// DeleteIntention removes the caller's own entry from the wall.
func DeleteIntention(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deleteIntentionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if req.ID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ID"})
		}

		if err := app.Intentions.Delete(c.UserContext(), req.UID.Int64(), req.ID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
