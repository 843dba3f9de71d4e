// Auth HTTP handlers.
//
// This file exposes the account lifecycle endpoints:
//   - POST /auth/login       (find-or-create by external account id)
//   - POST /auth/disconnect  (remove account and everything attached to it)
//
// There is no session issuance here: the identity provider in front of the
// API authenticates the account and the service trusts its account id.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haeun-dev/heartlink-backend/internal/domain"
	"github.com/haeun-dev/heartlink-backend/internal/services"
)

// LoginRequest is the JSON payload for login.
type LoginRequest struct {
	// AccountID is the opaque id issued by the external identity provider.
	AccountID string `json:"account_id" binding:"required,min=1,max=255" example:"kakao:1234567"`
	// Name optionally carries the display name captured at signup.
	Name string `json:"name" example:"Bob"`
}

// LoginResponse wraps the resolved user and whether the row was just created.
type LoginResponse struct {
	User      *domain.User `json:"user"`
	IsNewUser bool         `json:"is_new_user"`
}

// DisconnectRequest is the JSON payload for account removal.
type DisconnectRequest struct {
	AccountID string `json:"account_id" binding:"required,min=1,max=255" example:"kakao:1234567"`
}

// DisconnectResponse acknowledges a successful disconnect.
type DisconnectResponse struct {
	Success bool `json:"success" example:"true"`
}

// Login godoc
// @ID          login
// @Summary     Log in (find or create)
// @Description Resolves the user bound to the external account id, creating the row on first sight. A missing display name is filled in from the payload on later logins; an existing name is never overwritten.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
//
// @Success     200  {object} handlers.LoginResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id required")
		return
	}

	u, isNew, err := h.userSvc.Login(c.Request.Context(), req.AccountID, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLoginFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, LoginResponse{User: u, IsNewUser: isNew})
}

// Disconnect godoc
// @ID          disconnect
// @Summary     Disconnect an account
// @Description Permanently removes the account together with all of its alarms and matches. Disconnecting an unknown account succeeds, so identity-provider retries are safe.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.DisconnectRequest  true  "Disconnect payload"
//
// @Success     200  {object} handlers.DisconnectResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /auth/disconnect [post]
func (h *Handlers) Disconnect(c *gin.Context) {
	var req DisconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id required")
		return
	}

	if err := h.userSvc.Disconnect(c.Request.Context(), req.AccountID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDisconnectFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, DisconnectResponse{Success: true})
}
