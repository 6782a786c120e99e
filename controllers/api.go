package controllers

import (
	"errors"
	"net/http"
	"time"

	"envis/internal/models"
	"envis/services"

	"github.com/gin-gonic/gin"
)

const apiPrefix = "/envis/api/v1"

var startTime = time.Now()

type APIController struct {
	app *services.App
}

func NewAPIController(app *services.App) *APIController {
	return &APIController{app: app}
}

/**
 * Register the health probe and every resource controller
 * @param {*gin.Engine} r - Gin router instance
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	NewEnvironmentController(a.app).RegisterRoutes(r)
	NewServiceController(a.app).RegisterRoutes(r)
	NewDownloadController(a.app).RegisterRoutes(r)
	NewHostsController(a.app).RegisterRoutes(r)
	NewCertController(a.app).RegisterRoutes(r)
}

// @Summary Readiness probe
// @Description Reports process liveness and uptime
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
	})
}

// writeError maps the error taxonomy onto HTTP statuses. The code field
// carries the sentinel text so the front end can match on it.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrAlreadyExists):
		status, code = http.StatusConflict, "already_exists"
	case errors.Is(err, models.ErrPasswordIncorrect):
		status, code = http.StatusUnauthorized, "PasswordIncorrect"
	case errors.Is(err, models.ErrNeedsAdmin):
		status, code = http.StatusUnauthorized, "needAdminPasswordToModifyHosts"
	case errors.Is(err, models.ErrCorruptedState):
		status, code = http.StatusConflict, "corrupted_state"
	}
	c.JSON(status, models.ErrorResponse{Code: code, Error: err.Error()})
}
