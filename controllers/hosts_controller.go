package controllers

import (
	"net/http"

	"envis/internal/models"
	"envis/services"

	"github.com/gin-gonic/gin"
)

type HostsController struct {
	app *services.App
}

func NewHostsController(app *services.App) *HostsController {
	return &HostsController{app: app}
}

func (h *HostsController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/hosts", h.ListHosts)
	api.POST("/hosts", h.AddHosts)
	api.DELETE("/hosts", h.RemoveHosts)
}

// @Summary List the managed hosts block
// @Description Reads are permission free; lines outside the block are never reported
// @Tags Hosts
// @Produce json
// @Success 200 {array} models.HostEntry
// @Failure 409 {object} models.ErrorResponse
// @Router /envis/api/v1/hosts [get]
func (h *HostsController) ListHosts(c *gin.Context) {
	entries, err := h.app.Hosts.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

type hostsRequest struct {
	Entries  []models.HostEntry `json:"entries" binding:"required"`
	Password string             `json:"password"`
}

// @Summary Merge entries into the managed hosts block
// @Description Entries merge by (ip, hostname); writing requires the admin password
// @Tags Hosts
// @Accept json
// @Produce json
// @Param request body hostsRequest true "Entries and admin password"
// @Success 200 {array} models.HostEntry
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /envis/api/v1/hosts [post]
func (h *HostsController) AddHosts(c *gin.Context) {
	var req hostsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	if req.Password == "" {
		writeError(c, models.ErrNeedsAdmin)
		return
	}
	if err := h.app.Hosts.AddHosts(req.Entries, req.Password); err != nil {
		writeError(c, err)
		return
	}
	entries, err := h.app.Hosts.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// @Summary Remove entries from the managed hosts block
// @Tags Hosts
// @Accept json
// @Produce json
// @Param request body hostsRequest true "Entries and admin password"
// @Success 200 {array} models.HostEntry
// @Failure 401 {object} models.ErrorResponse
// @Router /envis/api/v1/hosts [delete]
func (h *HostsController) RemoveHosts(c *gin.Context) {
	var req hostsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	if req.Password == "" {
		writeError(c, models.ErrNeedsAdmin)
		return
	}
	if err := h.app.Hosts.RemoveHosts(req.Entries, req.Password); err != nil {
		writeError(c, err)
		return
	}
	entries, err := h.app.Hosts.List()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
