package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type adminLoginRequest struct {
	Name     string `json:"name"`
	PIN      string `json:"pin"`
	KhatmaID string `json:"khatma_id"`
}

// AdminLogin verifies the caller against the khatma's admin record.
func AdminLogin(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req adminLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if req.KhatmaID == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "بيانات الدخول غير صحيحة"})
		}

		ctx := c.UserContext()
		k, err := app.Khatmas.Get(ctx, req.KhatmaID)
		if err != nil || k.AdminID == 0 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "بيانات الدخول غير صحيحة"})
		}

		admin, err := app.Identity.Get(ctx, k.AdminID)
		if err != nil || admin.FullName != req.Name || admin.PIN != req.PIN {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "بيانات الدخول غير صحيحة"})
		}

		return c.JSON(fiber.Map{"success": true, "uid": admin.ID, "is_admin": true})
	}
}

func requireAdmin(c *fiber.Ctx, app *WebApp, khatmaID string, uid int64) bool {
	isAdmin, err := app.Khatmas.IsAdmin(c.UserContext(), scopeID(khatmaID), uid)
	return err == nil && isAdmin
}

// AdminUsers lists every participant of the khatma with their PINs.
func AdminUsers(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, _ := strconv.ParseInt(c.Query("uid"), 10, 64)
		khatmaID := c.Query("khatma_id")

		if !requireAdmin(c, app, khatmaID, uid) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		participants, err := app.Identity.List(c.UserContext(), scopeID(khatmaID))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		users := make([]fiber.Map, 0, len(participants))
		for _, p := range participants {
			users = append(users, fiber.Map{
				"id":        p.ID,
				"name":      p.FullName,
				"pin":       p.PIN,
				"active":    p.Active,
				"completed": p.Completed,
			})
		}
		return c.JSON(fiber.Map{"users": users})
	}
}

// AdminUserHizbs shows which slots one participant currently holds.
func AdminUserHizbs(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminUID, _ := strconv.ParseInt(c.Query("admin_uid"), 10, 64)
		targetUID, _ := strconv.ParseInt(c.Query("uid"), 10, 64)
		khatmaID := c.Query("khatma_id")

		if !requireAdmin(c, app, khatmaID, adminUID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		hizbs, err := app.Board.ParticipantHizbs(c.UserContext(), khatmaID, targetUID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"hizbs": hizbs})
	}
}

type adminControlRequest struct {
	Action   string `json:"action"`
	UID      flexID `json:"uid"`
	AdminUID flexID `json:"admin_uid"`
	KhatmaID string `json:"khatma_id"`
	Hizb     int    `json:"hizb"`
	Hizbs    []int  `json:"hizbs"`
	PIN      string `json:"pin"`
	Value    string `json:"value"`
}

// AdminControl multiplexes the board-management actions an admin can
// take on behalf of participants, plus the khatma settings updates.
func AdminControl(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req adminControlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		if !requireAdmin(c, app, req.KhatmaID, req.AdminUID.Int64()) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}

		ctx := c.UserContext()
		kid := scopeID(req.KhatmaID)

		switch req.Action {
		case "unassign":
			if err := app.Board.Release(ctx, req.KhatmaID, req.UID.Int64(), req.Hizb); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})

		case "assign":
			if err := app.Board.Claim(ctx, req.KhatmaID, req.UID.Int64(), req.Hizb); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})

		case "assign_bulk":
			// Best effort, taken slots are skipped.
			for _, h := range req.Hizbs {
				_ = app.Board.Claim(ctx, req.KhatmaID, req.UID.Int64(), h)
			}
			return c.JSON(fiber.Map{"success": true})

		case "complete":
			result, err := app.Board.Complete(ctx, req.KhatmaID, req.UID.Int64(), req.Hizb)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			if result.CycleFinished {
				return c.JSON(fiber.Map{"success": true, "completed": true})
			}
			return c.JSON(fiber.Map{"success": true})

		case "update_pin":
			if err := app.Identity.UpdatePIN(ctx, req.UID.Int64(), kid, req.PIN); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})

		case "reset_pin":
			if err := app.Identity.ResetPIN(ctx, req.UID.Int64()); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})

		case "deadline":
			if strings.TrimSpace(req.Value) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Deadline is required"})
			}
			if err := app.Khatmas.SetDeadline(ctx, kid, parseDeadline(req.Value)); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})

		case "update_total":
			total, err := strconv.Atoi(req.Value)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid number"})
			}
			if err := app.Khatmas.SetTotalCycles(ctx, kid, total); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})

		case "update_intention":
			if strings.TrimSpace(req.Value) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Intention text is required"})
			}
			if err := app.Khatmas.SetIntention(ctx, kid, req.Value); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
			}
			return c.JSON(fiber.Map{"success": true})
		}

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Action failed"})
	}
}
