package handlers

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/khatma-app/khatma/khatma/database/models"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/services"
)

type participantActivity struct {
	Name      string `json:"name"`
	Active    []int  `json:"active"`
	Completed []int  `json:"completed"`
}

type intentionEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

type statusResponse struct {
	CompletedCount int                   `json:"completed_count"`
	ActiveCount    int                   `json:"active_count"`
	RemainingCount int                   `json:"remaining_count"`
	Version        int64                 `json:"version"`
	Assignments    map[string][]int      `json:"assignments"`
	AvailableHizbs []int                 `json:"available_hizbs"`
	MyAssignments  []int                 `json:"my_assignments"`
	Deadline       string                `json:"deadline"`
	TotalKhatmas   int                   `json:"total_khatmas"`
	Intentions     []intentionEntry      `json:"intentions"`
	Participants   []participantActivity `json:"participants"`
	Intention      string                `json:"intention"`
	KhatmaName     string                `json:"khatma_name"`
}

func scopeID(khatmaID string) string {
	if khatmaID == "" {
		return models.LegacyKhatmaID
	}
	return khatmaID
}

// Status renders the full board for polling clients. The shared part of
// the payload is cached against the change-version; only my_assignments
// is rebuilt per caller.
func Status(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		khatmaID := c.Query("khatma_id")
		kid := scopeID(khatmaID)

		version, err := app.Board.Version(ctx, khatmaID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}

		var resp statusResponse
		if cached, ok := app.StatusCache.Get(kid, version); ok {
			resp = cached.(statusResponse)
		} else {
			built, err := buildStatus(c, app, khatmaID, version)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			resp = *built
			app.StatusCache.Put(kid, version, resp)
		}

		if uidStr := c.Query("uid"); uidStr != "" {
			var uid flexID
			if err := uid.UnmarshalJSON([]byte(uidStr)); err == nil && uid != 0 {
				mine, err := app.Board.ParticipantHizbs(ctx, khatmaID, uid.Int64())
				if err != nil {
					slog.Warn("Failed to fetch caller assignments",
						slog.String("type", "http"),
						slog.String("khatma_id", kid),
						slog.Any("error", err))
				} else {
					resp.MyAssignments = mine
				}
			}
		}
		if resp.MyAssignments == nil {
			resp.MyAssignments = []int{}
		}

		return c.JSON(resp)
	}
}

func buildStatus(c *fiber.Ctx, app *WebApp, khatmaID string, version int64) (*statusResponse, error) {
	ctx := c.UserContext()
	kid := scopeID(khatmaID)

	board, err := app.Board.Board(ctx, khatmaID)
	if err != nil {
		return nil, err
	}
	avail, err := app.Board.Available(ctx, khatmaID)
	if err != nil {
		return nil, err
	}
	k, err := app.Khatmas.Get(ctx, kid)
	if err != nil {
		return nil, err
	}
	intentions, err := app.Intentions.List(ctx, kid)
	if err != nil {
		return nil, err
	}

	assignments := make(map[string][]int)
	activity := make(map[string]*participantActivity)
	for _, e := range board.Entries {
		pa, ok := activity[e.Name]
		if !ok {
			pa = &participantActivity{Name: e.Name, Active: []int{}, Completed: []int{}}
			activity[e.Name] = pa
		}
		switch e.State {
		case models.HizbActive:
			assignments[e.Name] = append(assignments[e.Name], e.Hizb)
			pa.Active = append(pa.Active, e.Hizb)
		case models.HizbCompleted:
			pa.Completed = append(pa.Completed, e.Hizb)
		}
	}

	participants := make([]participantActivity, 0, len(activity))
	for _, pa := range activity {
		sort.Ints(pa.Active)
		sort.Ints(pa.Completed)
		participants = append(participants, *pa)
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].Name < participants[j].Name })

	ints := make([]intentionEntry, 0, len(intentions))
	for _, in := range intentions {
		ints = append(ints, intentionEntry{ID: in.ID, Name: in.Name, Text: in.Text})
	}

	return &statusResponse{
		CompletedCount: board.CompletedCount,
		ActiveCount:    board.ActiveCount,
		RemainingCount: models.TotalHizbs - board.CompletedCount - board.ActiveCount,
		Version:        version,
		Assignments:    assignments,
		AvailableHizbs: avail,
		Deadline:       k.Deadline.Format("2006-01-02 15:04"),
		TotalKhatmas:   k.TotalCycles,
		Intentions:     ints,
		Participants:   participants,
		Intention:      k.Intention,
		KhatmaName:     k.Name,
	}, nil
}

// CheckUpdate returns only the change-version so clients can poll
// cheaply and refetch the board when it moves.
func CheckUpdate(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		version, err := app.Board.Version(c.UserContext(), c.Query("khatma_id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"version": version})
	}
}

type loginRequest struct {
	Name     string `json:"name"`
	PIN      string `json:"pin"`
	KhatmaID string `json:"khatma_id"`
}

// Login resolves a participant by displayed name and optional PIN.
func Login(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		p, outcome, err := app.Identity.Resolve(c.UserContext(), scopeID(req.KhatmaID), req.Name, req.PIN)
		if err != nil {
			if errors.Is(err, repositories.ErrEmptyName) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "الاسم مطلوب"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if outcome == repositories.OutcomeWrongPIN {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "الرمز السري غير صحيح"})
		}

		isAdmin := false
		if req.KhatmaID != "" {
			isAdmin, _ = app.Khatmas.IsAdmin(c.UserContext(), req.KhatmaID, p.ID)
		}

		return c.JSON(fiber.Map{"success": true, "uid": p.ID, "is_admin": isAdmin})
	}
}

type joinRequest struct {
	Name     string `json:"name"`
	PIN      string `json:"pin"`
	Hizb     int    `json:"hizb"`
	KhatmaID string `json:"khatma_id"`
}

// Join resolves the participant and claims the slot in one call.
func Join(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req joinRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		ctx := c.UserContext()
		p, outcome, err := app.Identity.Resolve(ctx, scopeID(req.KhatmaID), req.Name, req.PIN)
		if err != nil {
			if errors.Is(err, repositories.ErrEmptyName) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "الاسم مطلوب"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		if outcome == repositories.OutcomeWrongPIN {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "الرمز السري غير صحيح"})
		}

		if err := app.Board.Claim(ctx, req.KhatmaID, p.ID, req.Hizb); err != nil {
			if errors.Is(err, services.ErrInvalidHizb) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "رقم الحزب غير صالح"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "الحزب محجوز"})
		}

		return c.JSON(fiber.Map{"success": true, "uid": p.ID})
	}
}

type slotRequest struct {
	UID      flexID `json:"uid"`
	Hizb     int    `json:"hizb"`
	KhatmaID string `json:"khatma_id"`
}

// Done marks one hizb as read. A finished cycle reports completed:true
// after the roll-over has already happened inside the same transaction.
func Done(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req slotRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		result, err := app.Board.Complete(c.UserContext(), req.KhatmaID, req.UID.Int64(), req.Hizb)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "فشل"})
		}
		if result.CycleFinished {
			return c.JSON(fiber.Map{"success": true, "completed": true})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

type uidRequest struct {
	UID      flexID `json:"uid"`
	KhatmaID string `json:"khatma_id"`
}

// DoneAll marks every hizb the participant holds as read.
func DoneAll(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req uidRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		result, err := app.Board.CompleteAll(c.UserContext(), req.KhatmaID, req.UID.Int64())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "فشل"})
		}
		if len(result.Hizbs) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "لا يوجد أحزاب لإتمامها"})
		}
		if result.CycleFinished {
			return c.JSON(fiber.Map{"success": true, "completed": true})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// UndoComplete reverts a completion recorded by mistake, returning the
// slot to the active state under the same owner.
func UndoComplete(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req slotRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		if err := app.Board.Undo(c.UserContext(), req.KhatmaID, req.UID.Int64(), req.Hizb); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "فشل"})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// Return releases a claimed slot back to the pool.
func Return(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req slotRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
		}

		if err := app.Board.Release(c.UserContext(), req.KhatmaID, req.UID.Int64(), req.Hizb); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "فشل"})
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
