package handlers

import (
	"log"
	"makao/internal/auth"
	"makao/internal/database"
	"makao/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleError provides a consistent way to handle and log errors
func handleError(c *gin.Context, status int, message string, err error) {
	log.Printf("Error: %v", err)
	c.JSON(status, gin.H{"error": message})
}

// orgRole returns the requester's role in the organization, or "" if they
// are not a member
func orgRole(userID string, orgID uint) string {
	var member models.OrganizationMember
	db := database.GetDB()
	if err := db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&member).Error; err != nil {
		return ""
	}
	return member.Role
}

// HomeHandler handles requests to the root path "/"
func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to Makao!")
}

// HealthHandler is a simple health check endpoint
func HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// LoginHandler redirects to Google OAuth login
func LoginHandler(c *gin.Context) {
	url, err := auth.GetLoginURL(c)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate login URL", err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// GoogleCallbackHandler processes the OAuth callback from Google
func GoogleCallbackHandler(c *gin.Context) {
	auth.HandleGoogleCallback(c)
}

// LogoutHandler handles user logout
func LogoutHandler(c *gin.Context) {
	auth.LogoutHandler(c)
}

// GetCurrentUser returns the signed-in user's profile
func GetCurrentUser(c *gin.Context) {
	userID := c.GetString("sub")

	db := database.GetDB()
	var profile models.UserProfile
	if err := db.Where("id = ?", userID).First(&profile).Error; err != nil {
		handleError(c, http.StatusNotFound, "Profile not found", err)
		return
	}

	var memberships []models.OrganizationMember
	if err := db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch memberships", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":     profile,
		"memberships": memberships,
	})
}

// UpdateMyProfile updates the signed-in user's editable profile fields
func UpdateMyProfile(c *gin.Context) {
	userID := c.GetString("sub")

	var request models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var profile models.UserProfile
	if err := db.Where("id = ?", userID).First(&profile).Error; err != nil {
		handleError(c, http.StatusNotFound, "Profile not found", err)
		return
	}

	if request.FullName != "" {
		profile.FullName = request.FullName
	}
	if request.PhoneNumber != "" {
		profile.PhoneNumber = request.PhoneNumber
	}
	if err := db.Save(&profile).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update profile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
