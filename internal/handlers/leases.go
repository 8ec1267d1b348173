package handlers

import (
	"makao/internal/database"
	"makao/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateLease binds a tenant to an apartment unit
func CreateLease(c *gin.Context) {
	var request models.CreateLeaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()

	var unit models.ApartmentUnit
	if err := db.Where("id = ?", request.UnitID).First(&unit).Error; err != nil {
		handleError(c, http.StatusNotFound, "Unit not found", err)
		return
	}

	requester := c.GetString("sub")
	role := orgRole(requester, unit.OrganizationID)
	if role != models.RoleAdmin && role != models.RoleManager {
		handleError(c, http.StatusForbidden, "Only organization staff can create leases", nil)
		return
	}

	var tenant models.UserProfile
	if err := db.Where("id = ?", request.TenantID).First(&tenant).Error; err != nil {
		handleError(c, http.StatusNotFound, "Tenant profile not found", err)
		return
	}

	// Reject a second active lease on the same unit
	var activeCount int64
	db.Model(&models.Lease{}).
		Where("unit_id = ? AND status = ?", unit.ID, models.LeaseActive).
		Count(&activeCount)
	if activeCount > 0 {
		handleError(c, http.StatusConflict, "Unit already has an active lease", nil)
		return
	}

	lease := models.Lease{
		UnitID:         unit.ID,
		TenantID:       request.TenantID,
		OrganizationID: unit.OrganizationID,
		Status:         models.LeaseActive,
		StartDate:      request.StartDate,
	}
	if err := db.Create(&lease).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create lease", err)
		return
	}

	c.JSON(http.StatusCreated, lease)
}

// ListLeases lists leases for an organization, optionally filtered by tenant
func ListLeases(c *gin.Context) {
	requester := c.GetString("sub")

	var query struct {
		OrganizationID uint   `form:"organization_id" binding:"required"`
		TenantID       string `form:"tenant_id"`
		Status         string `form:"status" binding:"omitempty,oneof=active terminated expired"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid query", err)
		return
	}

	if orgRole(requester, query.OrganizationID) == "" {
		handleError(c, http.StatusForbidden, "Not a member of this organization", nil)
		return
	}

	db := database.GetDB()
	q := db.Where("organization_id = ?", query.OrganizationID)
	if query.TenantID != "" {
		q = q.Where("tenant_id = ?", query.TenantID)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}

	var leases []models.Lease
	if err := q.Order("start_date desc").Find(&leases).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch leases", err)
		return
	}

	c.JSON(http.StatusOK, leases)
}
