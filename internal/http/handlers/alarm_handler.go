// Alarm HTTP handlers.
//
// This file exposes REST endpoints for alarm resources:
//   - POST   /alarms        (declare interest in a handle; may create a match)
//   - GET    /alarms        (list active alarms, paginated, ETag support)
//   - DELETE /alarms/{id}   (withdraw)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
	"github.com/haeun-dev/heartlink-backend/internal/repo"
	"github.com/haeun-dev/heartlink-backend/internal/services"
	"github.com/haeun-dev/heartlink-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// AlarmService defines the alarm lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type AlarmService interface {
	// Declare registers interest in targetHandle and runs match detection.
	Declare(ctx context.Context, userID, fromHandle, targetHandle string) (*domain.Alarm, *services.MatchResult, error)
	// Withdraw soft-deletes an active alarm, dissolving its match if any.
	Withdraw(ctx context.Context, alarmID string) (*services.WithdrawResult, error)
	// ListPage returns a page of active alarms for a user and the total count.
	ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Alarm, int64, error)
}

// UserService defines the user lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type UserService interface {
	// Login finds or creates the user bound to an external account id.
	Login(ctx context.Context, accountID, name string) (*domain.User, bool, error)
	// Get fetches a user by id.
	Get(ctx context.Context, id string) (*domain.User, error)
	// UpdateHandle registers or corrects the user's public handle.
	UpdateHandle(ctx context.Context, id, handle string) (*domain.User, error)
	// UpdateSettings partially updates notification preference flags.
	UpdateSettings(ctx context.Context, id string, push, inApp *bool) (*domain.User, error)
	// Disconnect removes the account and everything attached to it.
	Disconnect(ctx context.Context, accountID string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for alarms, auth, and users. It depends
// on abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	alarmSvc AlarmService
	userSvc  UserService
}

// New constructs a Handlers instance bound to the given services.
func New(alarmSvc AlarmService, userSvc UserService) *Handlers {
	return &Handlers{alarmSvc: alarmSvc, userSvc: userSvc}
}

// userID extracts the caller's user id from the Gin context (set by upstream
// middleware) with a fallback to the X-User-ID header. Returns "" when no
// identity is present; handlers decide whether that is an error.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// DeclareAlarmRequest is the JSON payload for declaring interest in a handle.
type DeclareAlarmRequest struct {
	// UserID is the declaring user; falls back to the X-User-ID header.
	UserID string `json:"user_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// FromHandle is the declarer's own handle as the target would know it.
	FromHandle string `json:"from_handle" binding:"required,min=1,max=255" example:"bob"`
	// TargetHandle is the handle the declarer is interested in.
	TargetHandle string `json:"target_handle" binding:"required,min=1,max=255" example:"alice"`
}

// DeclareAlarmResponse wraps the created alarm and the match outcome.
type DeclareAlarmResponse struct {
	Alarm   *domain.Alarm `json:"alarm"`
	Matched bool          `json:"matched"`
	Match   *domain.Match `json:"match,omitempty"`
}

// WithdrawAlarmResponse acknowledges a successful withdrawal.
type WithdrawAlarmResponse struct {
	Success bool `json:"success" example:"true"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListAlarmsResponse wraps a page of alarms and pagination information.
type ListAlarmsResponse struct {
	Alarms     []domain.Alarm `json:"alarms"`
	Pagination Pagination     `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// DeclareAlarm godoc
// @ID          declareAlarm
// @Summary     Declare interest in a handle
// @Description Registers the caller's interest in a target handle. When the target has already declared the caller, both sides are matched and notified.
// @Tags        Alarms
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (fallback when user_id is absent from the body)"  example(user123)
// @Param       body       body    handlers.DeclareAlarmRequest  true  "Declare alarm payload"
//
// @Success     201  {object}  handlers.DeclareAlarmResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown user"
// @Failure     409  {object}  handlers.ErrorResponse  "Alarm already declared"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /alarms [post]
func (h *Handlers) DeclareAlarm(c *gin.Context) {
	var req DeclareAlarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uid := strings.TrimSpace(req.UserID)
	if uid == "" {
		uid = userID(c)
	}
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id required")
		return
	}

	alarm, res, err := h.alarmSvc.Declare(c.Request.Context(), uid, req.FromHandle, req.TargetHandle)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrHandleRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "from_handle and target_handle required")
		case errors.Is(err, services.ErrSelfTarget):
			fail(c, http.StatusBadRequest, ErrCodeSelfTarget, "cannot declare an alarm for yourself")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrAlarmExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "alarm already declared for this handle")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDeclareFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, DeclareAlarmResponse{
		Alarm:   alarm,
		Matched: res.Matched,
		Match:   res.Match,
	})
}

// ListAlarms godoc
// @ID          listAlarms
// @Summary     List active alarms (paginated)
// @Description Returns a page of the user's active alarms, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Alarms
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (fallback when user_id query is absent)"  example(user123)
// @Param       user_id        query   string  false "User ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListAlarmsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alarms [get]
func (h *Handlers) ListAlarms(c *gin.Context) {
	ctx := c.Request.Context()
	uid := strings.TrimSpace(c.Query("user_id"))
	if uid == "" {
		uid = userID(c)
	}
	if uid == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id required")
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.alarmSvc.(*services.AlarmService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.AlarmsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"alarms:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.alarmSvc.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListAlarmsResponse{
		Alarms: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// WithdrawAlarm godoc
// @ID          withdrawAlarm
// @Summary     Withdraw an alarm
// @Description Soft-deletes an active alarm. If the alarm was matched, the counterpart reverts to waiting and is notified that the match dissolved.
// @Tags        Alarms
// @Produce     json
//
// @Param       id  path  string  true  "Alarm ID (UUID)"  format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object} handlers.WithdrawAlarmResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Alarm not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /alarms/{id} [delete]
func (h *Handlers) WithdrawAlarm(c *gin.Context) {
	alarmID := c.Param("id")
	if _, err := uuid.Parse(alarmID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "alarm id must be a UUID")
		return
	}

	if _, err := h.alarmSvc.Withdraw(c.Request.Context(), alarmID); err != nil {
		if errors.Is(err, services.ErrAlarmNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "alarm not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeWithdrawFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, WithdrawAlarmResponse{Success: true})
}
