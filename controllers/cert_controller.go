package controllers

import (
	"net/http"

	"envis/internal/models"
	"envis/services"

	"github.com/gin-gonic/gin"
)

type CertController struct {
	app *services.App
}

func NewCertController(app *services.App) *CertController {
	return &CertController{app: app}
}

func (ct *CertController) RegisterRoutes(r *gin.Engine) {
	api := r.Group(apiPrefix)
	api.POST("/ca", ct.InitializeCA)
	api.GET("/ca/installed", ct.CheckCAInstalled)
	api.GET("/environments/:id/certificates", ct.ListCertificates)
	api.POST("/environments/:id/certificates", ct.IssueCertificate)
	api.DELETE("/environments/:id/certificates/:domain", ct.RevokeCertificate)
}

// @Summary Initialize the local certificate authority
// @Description Idempotent; an existing CA conflicts
// @Tags Certificates
// @Accept json
// @Produce json
// @Param request body models.CAConfig false "CA parameters"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} models.ErrorResponse
// @Router /envis/api/v1/ca [post]
func (ct *CertController) InitializeCA(c *gin.Context) {
	var cc models.CAConfig
	_ = c.ShouldBindJSON(&cc)
	if err := ct.app.Certs.InitializeCA(cc); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// @Summary Check whether the CA is trusted by the OS
// @Tags Certificates
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/ca/installed [get]
func (ct *CertController) CheckCAInstalled(c *gin.Context) {
	installed, err := ct.app.Certs.CheckCAInstalled()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"installed": installed})
}

// @Summary List certificates of an environment
// @Tags Certificates
// @Produce json
// @Param id path string true "Environment id"
// @Success 200 {array} models.Certificate
// @Router /envis/api/v1/environments/{id}/certificates [get]
func (ct *CertController) ListCertificates(c *gin.Context) {
	certs, err := ct.app.Certs.List(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, certs)
}

type issueCertificateRequest struct {
	Domain       string   `json:"domain" binding:"required"`
	SANs         []string `json:"sans"`
	ValidityDays int      `json:"validity_days"`
}

// @Summary Issue a server certificate
// @Description Emits CRT, KEY, fullchain PEM and PFX under the domain's directory
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Environment id"
// @Param request body issueCertificateRequest true "Domain, SANs and validity"
// @Success 201 {object} models.Certificate
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/certificates [post]
func (ct *CertController) IssueCertificate(c *gin.Context) {
	var req issueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Code: "bad_request", Error: err.Error()})
		return
	}
	cert, err := ct.app.Certs.Issue(c.Param("id"), req.Domain, req.SANs, req.ValidityDays)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

// @Summary Revoke a certificate
// @Description Removes the domain's certificate material
// @Tags Certificates
// @Param id path string true "Environment id"
// @Param domain path string true "Domain"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /envis/api/v1/environments/{id}/certificates/{domain} [delete]
func (ct *CertController) RevokeCertificate(c *gin.Context) {
	if err := ct.app.Certs.Revoke(c.Param("id"), c.Param("domain")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
