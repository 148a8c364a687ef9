package handlers

import (
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/khatma-app/khatma/khatma/database/models"
)

// DevStats returns corpus-wide counters for the developer dashboard.
func DevStats(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := app.Khatmas.GlobalStats(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"khatmas":      stats.Khatmas,
			"participants": stats.Participants,
			"reads":        stats.Reads,
		})
	}
}

// DevKhatmas lists khatmas with progress, optionally filtered by a
// fuzzy query over name and id.
func DevKhatmas(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		offset := c.QueryInt("offset", 0)
		query := c.Query("q")

		summaries, err := app.Khatmas.List(c.UserContext(), query, limit, offset)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		out := make([]fiber.Map, 0, len(summaries))
		for _, s := range summaries {
			out = append(out, fiber.Map{
				"id":                s.ID,
				"name":              s.Name,
				"created_at":        s.CreatedAt,
				"updated_at":        s.UpdatedAt,
				"total_cycles":      s.TotalCycles,
				"current_completed": s.CurrentCompleted,
				"participant_count": s.ParticipantCount,
			})
		}
		return c.JSON(fiber.Map{"khatmas": out, "limit": limit, "offset": offset})
	}
}

// DevKhatmaDetails composes the full picture of one khatma: settings,
// admin, per-participant progress and a slot-by-slot map.
func DevKhatmaDetails(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kid := c.Query("id")
		if kid == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ID"})
		}

		ctx := c.UserContext()
		k, err := app.Khatmas.Get(ctx, kid)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not Found"})
		}

		board, err := app.Board.Board(ctx, kid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		participants, err := app.Identity.List(ctx, kid)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		hizbMap := make(map[string]fiber.Map, models.TotalHizbs)
		for i := 1; i <= models.TotalHizbs; i++ {
			hizbMap[strconv.Itoa(i)] = fiber.Map{"status": string(models.HizbAvailable), "user": nil, "uid": nil}
		}
		perUser := make(map[int64]map[string][]int)
		for _, e := range board.Entries {
			hizbMap[strconv.Itoa(e.Hizb)] = fiber.Map{"status": string(e.State), "user": e.Name, "uid": e.ParticipantID}
			uh, ok := perUser[e.ParticipantID]
			if !ok {
				uh = map[string][]int{"active": {}, "completed": {}}
				perUser[e.ParticipantID] = uh
			}
			uh[string(e.State)] = append(uh[string(e.State)], e.Hizb)
		}

		admin := fiber.Map{"name": "Unknown", "pin": "", "uid": k.AdminID}
		users := make([]fiber.Map, 0, len(participants))
		for _, p := range participants {
			uh := perUser[p.ID]
			active, completed := []int{}, []int{}
			if uh != nil {
				active, completed = uh["active"], uh["completed"]
				sort.Ints(active)
				sort.Ints(completed)
			}
			users = append(users, fiber.Map{
				"id": p.ID, "name": p.FullName, "pin": p.PIN,
				"active": active, "completed": completed,
			})
			if p.ID == k.AdminID {
				admin = fiber.Map{"name": p.FullName, "pin": p.PIN, "uid": p.ID}
			}
		}

		return c.JSON(fiber.Map{
			"info": fiber.Map{
				"id": k.ID, "name": k.Name, "intention": k.Intention,
				"deadline": k.Deadline, "total": k.TotalCycles, "created": k.CreatedAt,
			},
			"admin":    admin,
			"users":    users,
			"hizb_map": hizbMap,
		})
	}
}

type devUserRequest struct {
	UID      flexID `json:"uid"`
	KhatmaID string `json:"khatma_id"`
}

// DevRemoveUser deletes a participant and everything they hold.
func DevRemoveUser(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req devUserRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if req.UID == 0 || req.KhatmaID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing params"})
		}

		if err := app.Identity.Remove(c.UserContext(), req.UID.Int64(), req.KhatmaID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

type devKhatmaRequest struct {
	KhatmaID string `json:"khatma_id"`
}

// DevResetKhatma wipes a khatma's board without crediting a cycle.
func DevResetKhatma(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req devKhatmaRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if req.KhatmaID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ID"})
		}

		if err := app.Board.Reset(c.UserContext(), req.KhatmaID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// DevDeleteKhatma removes the khatma and all dependent rows.
func DevDeleteKhatma(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req devKhatmaRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if req.KhatmaID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing ID"})
		}

		if err := app.Khatmas.Purge(c.UserContext(), req.KhatmaID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		app.StatusCache.Invalidate(req.KhatmaID)
		return c.JSON(fiber.Map{"success": true})
	}
}

type devBulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// DevBulkDelete removes several khatmas in one call.
func DevBulkDelete(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req devBulkDeleteRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}
		if len(req.IDs) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No IDs"})
		}

		for _, kid := range req.IDs {
			if err := app.Khatmas.Purge(c.UserContext(), kid); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			app.StatusCache.Invalidate(kid)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
