package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"vendoralerts/internal/auth"
	"vendoralerts/internal/model"
	"vendoralerts/internal/notification"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	svc *notification.Service
	db  Pinger
	log *slog.Logger
}

func New(svc *notification.Service, db Pinger, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, db: db, log: log}
}

func (h *Handler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Error("Health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListNotifications(c echo.Context) error {
	userID := auth.UserID(c)

	var isRead *bool
	if v := c.QueryParam("is_read"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "is_read must be true or false"})
		}
		isRead = &b
	}
	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	views, err := h.svc.ListNotifications(c.Request().Context(), userID, isRead, limit)
	if err != nil {
		return respondError(c, h.log, "Failed to get notifications", err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification id"})
	}

	if err := h.svc.MarkRead(c.Request().Context(), auth.UserID(c), id); err != nil {
		return respondError(c, h.log, "Failed to mark notification as read", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (h *Handler) GetSettings(c echo.Context) error {
	views, err := h.svc.GetSettings(c.Request().Context(), auth.UserID(c))
	if err != nil {
		return respondError(c, h.log, "Failed to get notification settings", err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var updates []notification.SettingUpdate
	if err := c.Bind(&updates); err != nil {
		return bindError(c, err)
	}
	if len(updates) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "At least one setting is required"})
	}
	for i := range updates {
		if err := c.Validate(&updates[i]); err != nil {
			return respondError(c, h.log, "Invalid setting", err)
		}
	}

	if err := h.svc.UpdateSettings(c.Request().Context(), auth.UserID(c), updates); err != nil {
		return respondError(c, h.log, "Failed to update notification settings", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification settings updated"})
}

func (h *Handler) EnqueueNotification(c echo.Context) error {
	var req notification.ManualRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, "Invalid request", err)
	}

	id, err := h.svc.EnqueueManual(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, "Failed to enqueue notification", err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"queue_id": id})
}

func (h *Handler) ListRequests(c echo.Context) error {
	var f model.RequestFilter
	if v := c.QueryParam("status"); v != "" {
		status := model.Status(v)
		f.Status = &status
	}
	f.Kind = c.QueryParam("notification_type")

	limit, err := queryLimit(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	f.Limit = limit

	reqs, err := h.svc.ListRequests(c.Request().Context(), f)
	if err != nil {
		return respondError(c, h.log, "Failed to list queued notifications", err)
	}
	return c.JSON(http.StatusOK, reqs)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid queue id"})
	}

	req, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, "Failed to get queued notification", err)
	}
	return c.JSON(http.StatusOK, req)
}

const maxLimit = 1000

func queryLimit(c echo.Context) (int, error) {
	v := c.QueryParam("limit")
	if v == "" {
		return notification.DefaultLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errInvalidLimit
	}
	return min(n, maxLimit), nil
}
