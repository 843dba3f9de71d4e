// User HTTP handlers.
//
// This file exposes REST endpoints for user resources:
//   - GET   /users/{id}           (fetch profile)
//   - PUT   /users/{id}/handle    (register or correct the matching handle)
//   - PATCH /users/{id}/settings  (partial update of notification preferences)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/haeun-dev/heartlink-backend/internal/services"
)

// UpdateHandleRequest is the JSON payload for setting the public handle.
type UpdateHandleRequest struct {
	// Handle is the new public handle (1-255 chars after trimming).
	Handle string `json:"handle" binding:"required,min=1,max=255" example:"bob"`
}

// UpdateSettingsRequest is the JSON payload for the preference update.
// Omitted fields are left unchanged; at least one must be present.
type UpdateSettingsRequest struct {
	PushEnabled  *bool `json:"push_enabled,omitempty" example:"false"`
	InAppEnabled *bool `json:"in_app_enabled,omitempty" example:"true"`
}

// parseUserID validates the :id path parameter as a UUID, failing the request
// with 400 otherwise.
func parseUserID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a UUID")
		return "", false
	}
	return id, true
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a user profile
// @Tags        Users
// @Produce     json
//
// @Param       id  path  string  true  "User ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := parseUserID(c)
	if !valid {
		return
	}

	u, err := h.userSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateHandle godoc
// @ID          updateHandle
// @Summary     Register or correct the public handle
// @Description Sets the handle other users declare alarms against. Handles are not unique; collisions are tolerated by the matching layer.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "User ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateHandleRequest  true  "New handle"
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/handle [put]
func (h *Handlers) UpdateHandle(c *gin.Context) {
	id, valid := parseUserID(c)
	if !valid {
		return
	}

	var req UpdateHandleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "handle required (1-255 chars)")
		return
	}

	u, err := h.userSvc.UpdateHandle(c.Request.Context(), id, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrHandleRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "handle required (1-255 chars)")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, u)
}

// UpdateSettings godoc
// @ID          updateSettings
// @Summary     Update notification preferences
// @Description Partially updates the push and in-app notification flags. Omitted fields keep their value; an empty payload is rejected.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "User ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateSettingsRequest  true  "Preference changes"
//
// @Success     200  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/settings [patch]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	id, valid := parseUserID(c)
	if !valid {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u, err := h.userSvc.UpdateSettings(c.Request.Context(), id, req.PushEnabled, req.InAppEnabled)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoSettingsChange):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at least one preference flag required")
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, u)
}
