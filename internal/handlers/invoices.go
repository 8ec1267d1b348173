package handlers

import (
	"makao/internal/database"
	"makao/internal/models"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListInvoices lists invoices for an organization with optional filters
func ListInvoices(c *gin.Context) {
	requester := c.GetString("sub")

	var query struct {
		OrganizationID uint   `form:"organization_id" binding:"required"`
		LeaseID        uint   `form:"lease_id"`
		Status         string `form:"status" binding:"omitempty,oneof=unpaid partial paid overdue"`
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
	if query.LeaseID != 0 {
		q = q.Where("lease_id = ?", query.LeaseID)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}

	var invoices []models.Invoice
	if err := q.Order("due_date desc").Limit(100).Find(&invoices).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch invoices", err)
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// GetInvoice fetches one invoice with its lease
func GetInvoice(c *gin.Context) {
	invoiceID, err := strconv.ParseUint(c.Param("invoice_id"), 10, 64)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid invoice id", err)
		return
	}

	db := database.GetDB()
	var invoice models.Invoice
	if err := db.Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		handleError(c, http.StatusNotFound, "Invoice not found", err)
		return
	}

	requester := c.GetString("sub")
	if orgRole(requester, invoice.OrganizationID) == "" {
		// Tenants may view invoices on their own lease
		var lease models.Lease
		if err := db.Where("id = ? AND tenant_id = ?", invoice.LeaseID, requester).First(&lease).Error; err != nil {
			handleError(c, http.StatusForbidden, "Not allowed to view this invoice", nil)
			return
		}
	}

	var lease models.Lease
	if err := db.Where("id = ?", invoice.LeaseID).First(&lease).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch lease", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice": invoice,
		"lease":   lease,
	})
}
