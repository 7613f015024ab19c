package handler

import (
	"net/http"
	"strconv"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/middleware"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/money"
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles the append-only notification log's read
// surface.
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotificationResponse is a notification as returned to API callers.
type NotificationResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	ReferenceType string  `json:"referenceType"`
	ReferenceID   string  `json:"referenceId"`
	Amount        *string `json:"amount,omitempty"`
	Currency      *string `json:"currency,omitempty"`
	Reason        *string `json:"reason,omitempty"`
	ReadAt        *string `json:"readAt,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	var readAt *string
	if n.ReadAt != nil {
		s := n.ReadAt.Format(timeFormat)
		readAt = &s
	}
	var amount *string
	if n.AmountCents != nil && n.Currency != nil {
		if s, err := money.ToDecimal(*n.AmountCents, *n.Currency); err == nil {
			amount = &s
		}
	}
	return NotificationResponse{
		ID:            n.ID.String(),
		Type:          string(n.Type),
		ReferenceType: n.ReferenceType,
		ReferenceID:   n.ReferenceID.String(),
		Amount:        amount,
		Currency:      n.Currency,
		Reason:        n.Reason,
		ReadAt:        readAt,
		CreatedAt:     n.CreatedAt.Format(timeFormat),
	}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	notifications, err := h.notificationService.ListForUser(userID, limit)
	if err != nil {
		return Fail(c, err)
	}

	resp := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = toNotificationResponse(n)
	}
	return OK(c, resp)
}

// MarkRead handles POST /notifications/:notificationId/read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	if middleware.GetUserID(c) == uuid.Nil {
		return Fail(c, domain.ErrUnauthorized)
	}

	notificationID, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		return FailMessage(c, http.StatusBadRequest, "validation_error", "invalid notification id")
	}

	if err := h.notificationService.MarkRead(notificationID); err != nil {
		return Fail(c, err)
	}
	return NoContent(c)
}
