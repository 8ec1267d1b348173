package handlers

import (
	"makao/internal/database"
	"makao/internal/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// orgIDParam parses the :org_id path parameter
func orgIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("org_id"), 10, 64)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid organization id", err)
		return 0, false
	}
	return uint(id), true
}

// CreateOrganization registers an organization; the creator becomes its
// first admin member (and therefore the reminder sender identity).
func CreateOrganization(c *gin.Context) {
	var request models.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	creator := c.GetString("sub")
	db := database.GetDB()

	org := models.Organization{
		Name:        request.Name,
		PhoneNumber: request.PhoneNumber,
	}
	if err := db.Create(&org).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create organization", err)
		return
	}

	member := models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         creator,
		Role:           models.RoleAdmin,
	}
	if err := db.Create(&member).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to add creator as admin", err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// AddOrganizationMember adds a user to an organization (admin only)
func AddOrganizationMember(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	requester := c.GetString("sub")
	if orgRole(requester, orgID) != models.RoleAdmin {
		handleError(c, http.StatusForbidden, "Only admins can add members", nil)
		return
	}

	var request models.AddMemberRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()

	var profile models.UserProfile
	if err := db.Where("id = ?", request.UserID).First(&profile).Error; err != nil {
		handleError(c, http.StatusNotFound, "User profile not found", err)
		return
	}

	member := models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         request.UserID,
		Role:           request.Role,
	}
	if err := db.Create(&member).Error; err != nil {
		handleError(c, http.StatusConflict, "Failed to add member", err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// CreateSMSTemplate creates or replaces an organization's message template
func CreateSMSTemplate(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	requester := c.GetString("sub")
	role := orgRole(requester, orgID)
	if role != models.RoleAdmin && role != models.RoleManager {
		handleError(c, http.StatusForbidden, "Only organization staff can manage templates", nil)
		return
	}

	var request models.CreateSMSTemplateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var template models.SMSTemplate
	err := db.Where("organization_id = ? AND template_key = ?", orgID, request.TemplateKey).
		First(&template).Error
	if err == nil {
		template.Body = request.Body
		if err := db.Save(&template).Error; err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to update template", err)
			return
		}
		c.JSON(http.StatusOK, template)
		return
	}

	template = models.SMSTemplate{
		OrganizationID: orgID,
		TemplateKey:    request.TemplateKey,
		Body:           request.Body,
	}
	if err := db.Create(&template).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create template", err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// ListSMSTemplates lists an organization's message templates
func ListSMSTemplates(c *gin.Context) {
	orgID, ok := orgIDParam(c)
	if !ok {
		return
	}

	requester := c.GetString("sub")
	if orgRole(requester, orgID) == "" {
		handleError(c, http.StatusForbidden, "Not a member of this organization", nil)
		return
	}

	db := database.GetDB()
	var templates []models.SMSTemplate
	if err := db.Where("organization_id = ?", orgID).Find(&templates).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch templates", err)
		return
	}

	c.JSON(http.StatusOK, templates)
}
