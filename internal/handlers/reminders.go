package handlers

import (
	"log"
	"makao/internal/database"
	"makao/internal/models"
	"makao/internal/services"
	"makao/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CronSecretHeader carries the shared secret on scheduler invocations
const CronSecretHeader = "X-Cron-Secret"

// DispatchReminders returns the cron-triggered dispatch endpoint. The
// scheduler must present the shared secret; a mismatch is rejected before
// any processing happens.
func DispatchReminders(dispatcher *services.Dispatcher, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" || c.GetHeader(CronSecretHeader) != secret {
			log.Printf("Error: rejected reminder dispatch from %s: bad cron secret", utils.GetRealClientIP(c))
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthorized"})
			return
		}

		result, err := dispatcher.Run()
		if err != nil {
			log.Printf("Error: reminder dispatch failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}

		if result.Processed > 0 {
			log.Printf("Dispatched %d reminders (%d sent, %d failed, %d retried)",
				result.Processed, result.Sent, result.Failed, result.Retried)
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"processed": result.Processed,
			"sent":      result.Sent,
			"failed":    result.Failed,
			"retried":   result.Retried,
		})
	}
}

// CreateReminder queues a reminder for later dispatch
func CreateReminder(c *gin.Context) {
	var request models.CreateReminderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	requester := c.GetString("sub")
	role := orgRole(requester, request.OrganizationID)
	if role != models.RoleAdmin && role != models.RoleManager {
		handleError(c, http.StatusForbidden, "Only organization staff can queue reminders", nil)
		return
	}

	reminder := models.Reminder{
		UserID:         request.UserID,
		OrganizationID: request.OrganizationID,
		InvoiceID:      request.InvoiceID,
		Kind:           request.Kind,
		Channel:        request.Channel,
		DeliveryStatus: models.DeliveryPending,
		ScheduledFor:   request.ScheduledFor.UTC(),
		ScheduledSlot:  request.ScheduledSlot,
		Stage:          request.Stage,
		Message:        request.Message,
		Payload:        request.Payload,
	}

	db := database.GetDB()
	if err := db.Create(&reminder).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create reminder", err)
		return
	}

	c.JSON(http.StatusCreated, reminder)
}

// ListReminders lists an organization's reminders, optionally by status
func ListReminders(c *gin.Context) {
	requester := c.GetString("sub")

	var query struct {
		OrganizationID uint   `form:"organization_id" binding:"required"`
		Status         string `form:"status" binding:"omitempty,oneof=pending sent failed"`
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
	if query.Status != "" {
		q = q.Where("delivery_status = ?", query.Status)
	}

	var reminders []models.Reminder
	if err := q.Order("scheduled_for asc").Limit(200).Find(&reminders).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch reminders", err)
		return
	}

	c.JSON(http.StatusOK, reminders)
}
