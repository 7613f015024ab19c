package handler

import (
	"github.com/labstack/echo/v4"
)

// Handlers bundles every HTTP handler RegisterRoutes wires up, so the
// entrypoint doesn't have to pass a dozen positional arguments.
type Handlers struct {
	Auth         *AuthHandler
	Profile      *ProfileHandler
	Group        *GroupHandler
	Expense      *ExpenseHandler
	Settlement   *SettlementHandler
	Recurring    *RecurringHandler
	Balance      *BalanceHandler
	Notification *NotificationHandler
	APIToken     *APITokenHandler
	Attachment   *AttachmentHandler
}

// RegisterRoutes sets up the HTTP surface.
// auth is the combined JWT-or-API-token middleware every member-facing
// route accepts; admin gates the operator-only sweep endpoint behind the
// static admin API key.
func RegisterRoutes(e *echo.Echo, auth echo.MiddlewareFunc, admin echo.MiddlewareFunc, h *Handlers) {
	api := e.Group("/api/v1")

	// Token-credential auth routes: the caller's only credential is the
	// opaque token in the body, so these sit outside the auth middleware.
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/forgot-password", h.Auth.ForgotPassword)
	api.POST("/auth/reset-password", h.Auth.ResetPassword)
	api.POST("/auth/verify-email", h.Auth.VerifyEmail)

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Use(auth)
	authGroup.POST("/callback", h.Auth.Callback)
	authGroup.GET("/me", h.Auth.Me)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.POST("/verify-email/request", h.Auth.RequestEmailVerification)

	// Profile routes
	profile := api.Group("/profile")
	profile.Use(auth)
	profile.GET("", h.Profile.GetProfile)
	profile.PUT("", h.Profile.UpdateProfile)
	profile.POST("/delete", h.Profile.RequestDeletion)
	profile.POST("/delete/cancel", h.Profile.CancelDeletion)

	// API token routes (user-scoped, not group-scoped)
	apiTokens := api.Group("/api-tokens")
	apiTokens.Use(auth)
	apiTokens.POST("", h.APIToken.Create)
	apiTokens.GET("", h.APIToken.List)
	apiTokens.DELETE("/:tokenId", h.APIToken.Revoke)

	// Notification routes (user-scoped)
	notifications := api.Group("/notifications")
	notifications.Use(auth)
	notifications.GET("", h.Notification.List)
	notifications.POST("/:notificationId/read", h.Notification.MarkRead)

	// Group routes
	groups := api.Group("/groups")
	groups.Use(auth)
	groups.POST("", h.Group.CreateGroup)
	groups.GET("", h.Group.ListGroups)
	groups.POST("/join", h.Group.JoinGroup)
	groups.GET("/:groupId", h.Group.GetGroup)
	groups.PUT("/:groupId", h.Group.UpdateGroup)
	groups.DELETE("/:groupId", h.Group.DeleteGroup)
	groups.POST("/:groupId/leave", h.Group.Leave)
	groups.POST("/:groupId/regenerate-code", h.Group.RegenerateCode)
	groups.POST("/:groupId/transfer-ownership", h.Group.TransferOwnership)
	groups.GET("/:groupId/members", h.Group.ListMembers)
	groups.DELETE("/:groupId/members/:memberId", h.Group.RemoveMember)
	groups.PUT("/:groupId/members/:memberId/role", h.Group.UpdateMemberRole)

	// Expense routes
	groups.POST("/:groupId/expenses", h.Expense.CreateExpense)
	groups.GET("/:groupId/expenses", h.Expense.ListExpenses)
	groups.GET("/:groupId/expenses/:expenseId", h.Expense.GetExpense)
	groups.PUT("/:groupId/expenses/:expenseId", h.Expense.UpdateExpense)
	groups.DELETE("/:groupId/expenses/:expenseId", h.Expense.DeleteExpense)

	// Settlement routes
	groups.POST("/:groupId/settlements", h.Settlement.CreateSettlement)
	groups.GET("/:groupId/settlements", h.Settlement.ListSettlements)
	groups.GET("/:groupId/settlements/:settlementId", h.Settlement.GetSettlement)
	groups.POST("/:groupId/settlements/:settlementId/confirm", h.Settlement.Confirm)
	groups.POST("/:groupId/settlements/:settlementId/reject", h.Settlement.Reject)
	groups.POST("/:groupId/settlements/:settlementId/cancel", h.Settlement.Cancel)

	// Balance routes
	groups.GET("/:groupId/balances", h.Balance.GetBalances)

	// Recurring-rule routes
	groups.POST("/:groupId/recurring", h.Recurring.CreateRule)
	groups.GET("/:groupId/recurring", h.Recurring.ListRules)
	groups.GET("/:groupId/recurring/:ruleId", h.Recurring.GetRule)
	groups.PUT("/:groupId/recurring/:ruleId", h.Recurring.UpdateRule)
	groups.POST("/:groupId/recurring/:ruleId/deactivate", h.Recurring.DeactivateRule)
	groups.DELETE("/:groupId/recurring/:ruleId", h.Recurring.DeleteRule)

	// Attachment routes
	groups.POST("/:groupId/attachments", h.Attachment.Upload)
	groups.GET("/:groupId/attachments/:attachmentId", h.Attachment.GetURL)

	// Admin routes
	adminGroup := api.Group("/admin")
	adminGroup.Use(admin)
	adminGroup.POST("/generate-recurring", h.Recurring.GenerateDue)
}
