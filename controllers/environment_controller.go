package controllers

import (
	"net/http"

	"envis/internal/models"
	"envis/services"

	"github.com/gin-gonic/gin"
)

type EnvironmentController struct {
	app *services.App
}

func NewEnvironmentController(app *services.App) *EnvironmentController {
	return &EnvironmentController{app: app}
}

func (e *EnvironmentController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/environments", e.ListEnvironments)
	api.POST("/environments", e.CreateEnvironment)
	api.GET("/environments/:id", e.GetEnvironment)
	api.PUT("/environments/:id", e.UpdateEnvironment)
	api.DELETE("/environments/:id", e.DeleteEnvironment)
	api.POST("/environments/:id/activate", e.ActivateEnvironment)
	api.POST("/environments/:id/deactivate", e.DeactivateEnvironment)
}

// @Summary List environments
// @Description Get every environment sorted by sort key
// @Tags Environments
// @Produce json
// @Success 200 {array} models.Environment
// @Failure 500 {object} models.ErrorResponse
// @Router /envis/api/v1/environments [get]
func (e *EnvironmentController) ListEnvironments(c *gin.Context) {
	envs, err := e.app.Environments.GetAll()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envs)
}

type createEnvironmentRequest struct {
	Name string `json:"name" binding:"required"`
}

// @Summary Create environment
// @Tags Environments
// @Accept json
// @Produce json
// @Param request body createEnvironmentRequest true "Environment name"
// @Success 201 {object} models.Environment
// @Failure 400 {object} models.ErrorResponse
// @Router /envis/api/v1/environments [post]
func (e *EnvironmentController) CreateEnvironment(c *gin.Context) {
	var req createEnvironmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	env, err := e.app.Environments.Create(req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, env)
}

// @Summary Get environment
// @Tags Environments
// @Produce json
// @Param id path string true "Environment id"
// @Success 200 {object} models.Environment
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id} [get]
func (e *EnvironmentController) GetEnvironment(c *gin.Context) {
	env, err := e.app.Environments.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// @Summary Update environment
// @Description Name, sort and metadata are writable
// @Tags Environments
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Success 200 {object} models.Environment
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id} [put]
func (e *EnvironmentController) UpdateEnvironment(c *gin.Context) {
	cur, err := e.app.Environments.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req models.Environment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	cur.Name = req.Name
	cur.Sort = req.Sort
	cur.Metadata = req.Metadata
	if err := e.app.Environments.Save(cur); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cur)
}

// @Summary Delete environment
// @Description Removes the environment and every service data record in it
// @Tags Environments
// @Param id path string true "Environment id"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id} [delete]
func (e *EnvironmentController) DeleteEnvironment(c *gin.Context) {
	if err := e.app.Environments.Delete(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type activateRequest struct {
	Password string `json:"password"`
}

// @Summary Activate environment and its services
// @Description Rewrites the managed shell block and reactivates services whose saved status is Active
// @Tags Environments
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Param request body activateRequest false "Admin password for privileged services"
// @Success 200 {object} models.Environment
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/activate [post]
func (e *EnvironmentController) ActivateEnvironment(c *gin.Context) {
	env, err := e.app.Environments.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req activateRequest
	_ = c.ShouldBindJSON(&req)
	if err := e.app.Environments.ActivateWithServices(env, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// @Summary Deactivate environment and its services
// @Tags Environments
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Success 200 {object} models.Environment
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/deactivate [post]
func (e *EnvironmentController) DeactivateEnvironment(c *gin.Context) {
	env, err := e.app.Environments.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	var req activateRequest
	_ = c.ShouldBindJSON(&req)
	if err := e.app.Environments.DeactivateWithServices(env, req.Password); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}
