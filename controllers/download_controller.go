package controllers

import (
	"net/http"

	"envis/internal/models"
	"envis/services"

	"github.com/gin-gonic/gin"
)

type DownloadController struct {
	app *services.App
}

func NewDownloadController(app *services.App) *DownloadController {
	return &DownloadController{app: app}
}

func (d *DownloadController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.GET("/installers/:type/versions", d.ListVersions)
	api.POST("/installers/:type/:version/install", d.Install)
	api.POST("/installers/:type/:version/cancel", d.Cancel)
	api.GET("/installers/:type/:version/progress", d.Progress)
	api.DELETE("/installers/:type/:version", d.Uninstall)
	api.GET("/downloads", d.ListTasks)
}

// @Summary List installable versions of a service type
// @Tags Installers
// @Produce json
// @Param type path string true "Service type"
// @Success 200 {array} models.VersionInfo
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/installers/{type}/versions [get]
func (d *DownloadController) ListVersions(c *gin.Context) {
	in, err := d.app.Installers.Get(models.ServiceType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	versions, err := in.AvailableVersions()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// @Summary Download and install a service version
// @Description Blocks until the install settles; watch progress from another request
// @Tags Installers
// @Produce json
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 200 {object} models.DownloadTask
// @Failure 500 {object} models.ErrorResponse
// @Router /envis/api/v1/installers/{type}/{version}/install [post]
func (d *DownloadController) Install(c *gin.Context) {
	t := models.ServiceType(c.Param("type"))
	version := c.Param("version")
	in, err := d.app.Installers.Get(t)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := in.DownloadAndInstall(version); err != nil {
		writeError(c, err)
		return
	}
	task, _ := in.DownloadProgress(version)
	c.JSON(http.StatusOK, task)
}

// @Summary Cancel a running download
// @Tags Installers
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/installers/{type}/{version}/cancel [post]
func (d *DownloadController) Cancel(c *gin.Context) {
	in, err := d.app.Installers.Get(models.ServiceType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := in.CancelDownload(c.Param("version")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get download progress
// @Tags Installers
// @Produce json
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 200 {object} models.DownloadTask
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/installers/{type}/{version}/progress [get]
func (d *DownloadController) Progress(c *gin.Context) {
	in, err := d.app.Installers.Get(models.ServiceType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	task, ok := in.DownloadProgress(c.Param("version"))
	if !ok {
		writeError(c, models.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary Uninstall a shared service installation
// @Tags Installers
// @Param type path string true "Service type"
// @Param version path string true "Version"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/installers/{type}/{version} [delete]
func (d *DownloadController) Uninstall(c *gin.Context) {
	in, err := d.app.Installers.Get(models.ServiceType(c.Param("type")))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := in.Uninstall(c.Param("version")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List every download task
// @Tags Installers
// @Produce json
// @Success 200 {array} models.DownloadTask
// @Router /envis/api/v1/downloads [get]
func (d *DownloadController) ListTasks(c *gin.Context) {
	c.JSON(http.StatusOK, d.app.Downloads.ListTasks())
}
