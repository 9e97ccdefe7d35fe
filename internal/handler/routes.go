package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/defterly/defter-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, tenantMiddleware *middleware.TenantMiddleware, cronAuthMiddleware *middleware.CronAuthMiddleware, invoiceHandler *InvoiceHandler, transactionHandler *TransactionHandler, debtHandler *DebtHandler, notificationHandler *NotificationHandler, obligationHandler *ObligationHandler, wsHandler *WebSocketHandler) {
	// API version 1
	api := e.Group("/api/v1")

	// Invoice routes (tenant-scoped)
	invoices := api.Group("/invoices")
	invoices.Use(tenantMiddleware.Authenticate())
	invoices.POST("", invoiceHandler.IssueInvoice)
	invoices.GET("/:id", invoiceHandler.GetInvoice)
	invoices.DELETE("/:id", invoiceHandler.DeleteInvoice)
	invoices.POST("/:id/payments", invoiceHandler.ApplyPayment)

	// Transaction routes (tenant-scoped)
	transactions := api.Group("/transactions")
	transactions.Use(tenantMiddleware.Authenticate())
	transactions.POST("/:id/reconcile", transactionHandler.Reconcile)

	// Debt routes (tenant-scoped)
	debts := api.Group("/debts")
	debts.Use(tenantMiddleware.Authenticate())
	debts.POST("", debtHandler.CreateDebt)
	debts.GET("/:id", debtHandler.GetDebt)
	debts.POST("/:id/payments", debtHandler.ReduceDebt)
	debts.POST("/:id/cancel", debtHandler.CancelDebt)
	debts.DELETE("/:id", debtHandler.DeleteDebt)

	// Notification routes (tenant-scoped)
	notifications := api.Group("/notifications")
	notifications.Use(tenantMiddleware.Authenticate())
	notifications.GET("", notificationHandler.ListNotifications)

	// Obligation processing (cron-triggered)
	obligations := api.Group("/obligations")
	obligations.Use(cronAuthMiddleware.Authenticate())
	obligations.POST("/process", obligationHandler.ProcessObligations)

	// WebSocket endpoint
	e.GET("/ws", wsHandler.HandleWS)
}
