package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	webservices "github.com/khatma-app/khatma/backend/services"
	"github.com/khatma-app/khatma/khatma/database"
	"github.com/khatma-app/khatma/khatma/database/repositories"
	"github.com/khatma-app/khatma/khatma/services"
)

// WebApp carries the dependencies every handler needs.
type WebApp struct {
	DB          *database.DB
	Board       *services.BoardService
	Identity    *services.IdentityService
	Khatmas     *services.KhatmaService
	Intentions  repositories.IntentionRepository
	StatusCache *webservices.StatusCache
	Version     string
	Commit      string
}

// flexID accepts a participant id sent either as a JSON number or a
// string. Web clients are not consistent about it.
type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

func (f flexID) Int64() int64 { return int64(f) }

// HealthCheck reports service liveness and database reachability.
func HealthCheck(app *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "ok"
		if err := app.DB.Ping(c.UserContext()); err != nil {
			dbStatus = "unreachable"
		}
		return c.JSON(fiber.Map{
			"status":   "running",
			"version":  app.Version,
			"commit":   app.Commit,
			"database": dbStatus,
		})
	}
}
