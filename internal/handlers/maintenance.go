package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"makao/internal/database"
	"makao/internal/models"
	"makao/internal/services"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CreateMaintenanceRequest files a repair request for the tenant's unit.
// Accepts multipart form data with an optional photo; the photo goes to
// Cloudinary and the organization's admin gets an email notice.
func CreateMaintenanceRequest(c *gin.Context) {
	tenantID := c.GetString("sub")

	unitID, err := strconv.ParseUint(c.PostForm("unit_id"), 10, 64)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid unit id", err)
		return
	}
	title := c.PostForm("title")
	description := c.PostForm("description")
	if title == "" {
		handleError(c, http.StatusBadRequest, "Title is required", nil)
		return
	}

	db := database.GetDB()

	var unit models.ApartmentUnit
	if err := db.Where("id = ?", unitID).First(&unit).Error; err != nil {
		handleError(c, http.StatusNotFound, "Unit not found", err)
		return
	}

	// Only the unit's active tenant may file a request
	var lease models.Lease
	if err := db.Where("unit_id = ? AND tenant_id = ? AND status = ?",
		unit.ID, tenantID, models.LeaseActive).First(&lease).Error; err != nil {
		handleError(c, http.StatusForbidden, "No active lease on this unit", err)
		return
	}

	request := models.MaintenanceRequest{
		OrganizationID: unit.OrganizationID,
		UnitID:         unit.ID,
		TenantID:       tenantID,
		Title:          title,
		Description:    description,
		Status:         models.MaintenanceOpen,
	}
	if err := db.Create(&request).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create maintenance request", err)
		return
	}

	// Photo upload is best-effort: the request stands even if it fails
	if fileHeader, err := c.FormFile("photo"); err == nil {
		file, err := fileHeader.Open()
		if err == nil {
			defer file.Close()
			if imageService, err := services.NewImageService(); err == nil {
				if err := imageService.ValidateImageFile(file, 10*1024*1024); err != nil {
					log.Printf("Warning: rejected maintenance photo: %v", err)
				} else if url, err := imageService.UploadMaintenancePhoto(file, fileHeader.Filename, fmt.Sprint(request.ID)); err != nil {
					log.Printf("Warning: failed to upload maintenance photo: %v", err)
				} else {
					photos, _ := json.Marshal([]string{url})
					if err := db.Model(&request).Update("photos", photos).Error; err != nil {
						log.Printf("Warning: failed to attach photo to request %d: %v", request.ID, err)
					}
				}
			} else {
				log.Printf("Warning: image uploads disabled: %v", err)
			}
		}
	}

	notifyOrgAdmin(request, unit)

	c.JSON(http.StatusCreated, request)
}

// notifyOrgAdmin emails the organization's first admin about a new request
func notifyOrgAdmin(request models.MaintenanceRequest, unit models.ApartmentUnit) {
	db := database.GetDB()

	var admin models.OrganizationMember
	if err := db.Where("organization_id = ? AND role = ?", request.OrganizationID, models.RoleAdmin).
		Order("id asc").First(&admin).Error; err != nil {
		log.Printf("Warning: no admin to notify for organization %d", request.OrganizationID)
		return
	}

	var adminProfile, tenantProfile models.UserProfile
	if err := db.Where("id = ?", admin.UserID).First(&adminProfile).Error; err != nil {
		log.Printf("Warning: admin profile %s not found: %v", admin.UserID, err)
		return
	}
	tenantName := "A tenant"
	if err := db.Where("id = ?", request.TenantID).First(&tenantProfile).Error; err == nil && tenantProfile.FullName != "" {
		tenantName = tenantProfile.FullName
	}

	emailService := services.NewEmailService()
	if err := emailService.SendMaintenanceRequestEmail(
		adminProfile.Email, adminProfile.FullName, tenantName, unit.UnitNumber, request); err != nil {
		log.Printf("Warning: failed to email maintenance notice: %v", err)
	}
}

// ListMaintenanceRequests lists requests for an organization or for the
// signed-in tenant
func ListMaintenanceRequests(c *gin.Context) {
	requester := c.GetString("sub")

	var query struct {
		OrganizationID uint   `form:"organization_id"`
		Status         string `form:"status" binding:"omitempty,oneof=open in_progress resolved"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid query", err)
		return
	}

	db := database.GetDB()
	q := db.Order("created_at desc").Limit(100)
	if query.OrganizationID != 0 {
		if orgRole(requester, query.OrganizationID) == "" {
			handleError(c, http.StatusForbidden, "Not a member of this organization", nil)
			return
		}
		q = q.Where("organization_id = ?", query.OrganizationID)
	} else {
		q = q.Where("tenant_id = ?", requester)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}

	var requests []models.MaintenanceRequest
	if err := q.Find(&requests).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch maintenance requests", err)
		return
	}

	c.JSON(http.StatusOK, requests)
}

// UpdateMaintenanceStatus moves a request between open/in_progress/resolved
func UpdateMaintenanceStatus(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Param("request_id"), 10, 64)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid request id", err)
		return
	}

	db := database.GetDB()
	var request models.MaintenanceRequest
	if err := db.Where("id = ?", requestID).First(&request).Error; err != nil {
		handleError(c, http.StatusNotFound, "Maintenance request not found", err)
		return
	}

	requester := c.GetString("sub")
	role := orgRole(requester, request.OrganizationID)
	if role != models.RoleAdmin && role != models.RoleManager && role != models.RoleCaretaker {
		handleError(c, http.StatusForbidden, "Only organization staff can update requests", nil)
		return
	}

	var body models.UpdateMaintenanceStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if err := db.Model(&request).Update("status", body.Status).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update status", err)
		return
	}

	// Tell the tenant when their request is resolved
	if body.Status == models.MaintenanceResolved {
		var tenant models.UserProfile
		var unit models.ApartmentUnit
		if db.Where("id = ?", request.TenantID).First(&tenant).Error == nil &&
			db.Where("id = ?", request.UnitID).First(&unit).Error == nil {
			emailService := services.NewEmailService()
			if err := emailService.SendMaintenanceResolvedEmail(
				tenant.Email, tenant.FullName, unit.UnitNumber, request.Title); err != nil {
				log.Printf("Warning: failed to email resolution notice: %v", err)
			}
		}
	}

	request.Status = body.Status
	c.JSON(http.StatusOK, request)
}
