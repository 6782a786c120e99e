package controllers

import (
	"net/http"

	"envis/internal/models"
	"envis/services"

	"github.com/gin-gonic/gin"
)

type ServiceController struct {
	app *services.App
}

func NewServiceController(app *services.App) *ServiceController {
	return &ServiceController{app: app}
}

func (s *ServiceController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/environments/:id/services", s.ListServices)
	api.POST("/environments/:id/services", s.CreateService)
	api.PUT("/environments/:id/services/:type/:version", s.UpdateService)
	api.DELETE("/environments/:id/services/:type/:version", s.DeleteService)
	api.POST("/environments/:id/services/:type/:version/activate", s.ActivateService)
	api.POST("/environments/:id/services/:type/:version/deactivate", s.DeactivateService)
}

// @Summary List service data records of an environment
// @Tags Services
// @Produce json
// @Param id path string true "Environment id"
// @Success 200 {array} models.ServiceData
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/services [get]
func (s *ServiceController) ListServices(c *gin.Context) {
	sds, err := s.app.ServiceData.List(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sds)
}

type createServiceRequest struct {
	ServiceType models.ServiceType `json:"service_type" binding:"required"`
	Version     string             `json:"version" binding:"required"`
}

// @Summary Create a service data record
// @Description One record per (type, version) in an environment; duplicates conflict
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Param request body createServiceRequest true "Service type and version"
// @Success 201 {object} models.ServiceData
// @Failure 409 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/services [post]
func (s *ServiceController) CreateService(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	sd, err := s.app.ServiceData.Create(c.Param("id"), req.ServiceType, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sd)
}

// @Summary Update a service data record
// @Description name, status, sort and metadata are writable; type and version are locked
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 200 {object} models.ServiceData
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/services/{type}/{version} [put]
func (s *ServiceController) UpdateService(c *gin.Context) {
	var req models.ServiceData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	req.ServiceType = models.ServiceType(c.Param("type"))
	req.Version = c.Param("version")
	sd, err := s.app.ServiceData.Update(c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sd)
}

// @Summary Delete a service data record
// @Tags Services
// @Param id path string true "Environment id"
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/services/{type}/{version} [delete]
func (s *ServiceController) DeleteService(c *gin.Context) {
	err := s.app.ServiceData.Delete(c.Param("id"),
		models.ServiceType(c.Param("type")), c.Param("version"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Activate a service data record
// @Description Pushes the record's PATH entries, exports and aliases into the managed block
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Param request body activateRequest false "Admin password for host-type services"
// @Success 200 {object} models.ServiceData
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/services/{type}/{version}/activate [post]
func (s *ServiceController) ActivateService(c *gin.Context) {
	envID := c.Param("id")
	sd, err := s.app.ServiceData.Get(envID,
		models.ServiceType(c.Param("type")), c.Param("version"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req activateRequest
	_ = c.ShouldBindJSON(&req)
	if err := s.app.ServiceData.Activate(envID, sd, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sd)
}

// @Summary Deactivate a service data record
// @Tags Services
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 200 {object} models.ServiceData
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/services/{type}/{version}/deactivate [post]
func (s *ServiceController) DeactivateService(c *gin.Context) {
	envID := c.Param("id")
	sd, err := s.app.ServiceData.Get(envID,
		models.ServiceType(c.Param("type")), c.Param("version"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req activateRequest
	_ = c.ShouldBindJSON(&req)
	if err := s.app.ServiceData.Deactivate(envID, sd, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sd)
}
