package handlers

import (
	"makao/internal/database"
	"makao/internal/models"
	"makao/internal/services"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// CreateProperty registers a property under an organization. The address
// is validated and standardized through Google Maps using the Place ID.
func CreateProperty(c *gin.Context) {
	var request models.CreatePropertyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	requester := c.GetString("sub")
	role := orgRole(requester, request.OrganizationID)
	if role != models.RoleAdmin && role != models.RoleManager {
		handleError(c, http.StatusForbidden, "Only organization staff can register properties", nil)
		return
	}

	place, err := services.ValidateAddress(request.PlaceID)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to validate address", err)
		return
	}

	property := models.Property{
		OrganizationID: request.OrganizationID,
		Name:           request.Name,
		Address: models.Address{
			FormattedAddress: place.FormattedAddress,
			PlaceID:          place.PlaceID,
			Latitude:         place.Geometry.Location.Lat,
			Longitude:        place.Geometry.Location.Lng,
		},
	}

	db := database.GetDB()
	if err := db.Create(&property).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create property", err)
		return
	}

	c.JSON(http.StatusCreated, property)
}

// ListProperties lists an organization's properties
func ListProperties(c *gin.Context) {
	requester := c.GetString("sub")

	var query struct {
		OrganizationID uint `form:"organization_id" binding:"required"`
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
	var properties []models.Property
	if err := db.Where("organization_id = ?", query.OrganizationID).Find(&properties).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch properties", err)
		return
	}

	c.JSON(http.StatusOK, properties)
}

// CreateUnit adds an apartment unit to a property
func CreateUnit(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("property_id"), 10, 64)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid property id", err)
		return
	}

	db := database.GetDB()
	var property models.Property
	if err := db.Where("id = ?", propertyID).First(&property).Error; err != nil {
		handleError(c, http.StatusNotFound, "Property not found", err)
		return
	}

	requester := c.GetString("sub")
	role := orgRole(requester, property.OrganizationID)
	if role != models.RoleAdmin && role != models.RoleManager {
		handleError(c, http.StatusForbidden, "Only organization staff can add units", nil)
		return
	}

	var request models.CreateUnitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	unit := models.ApartmentUnit{
		PropertyID:     property.ID,
		OrganizationID: property.OrganizationID,
		UnitNumber:     request.UnitNumber,
		MonthlyRent:    request.MonthlyRent,
	}
	if err := db.Create(&unit).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create unit", err)
		return
	}

	c.JSON(http.StatusCreated, unit)
}

// ListUnits lists a property's units
func ListUnits(c *gin.Context) {
	propertyID, err := strconv.ParseUint(c.Param("property_id"), 10, 64)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid property id", err)
		return
	}

	db := database.GetDB()
	var property models.Property
	if err := db.Where("id = ?", propertyID).First(&property).Error; err != nil {
		handleError(c, http.StatusNotFound, "Property not found", err)
		return
	}

	requester := c.GetString("sub")
	if orgRole(requester, property.OrganizationID) == "" {
		handleError(c, http.StatusForbidden, "Not a member of this organization", nil)
		return
	}

	var units []models.ApartmentUnit
	if err := db.Where("property_id = ?", property.ID).Order("unit_number asc").Find(&units).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch units", err)
		return
	}

	c.JSON(http.StatusOK, units)
}
