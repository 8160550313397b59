// Package handlers – user account endpoints
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pvidalis/go-bookstore-backend/internal/repo"
	"github.com/pvidalis/go-bookstore-backend/internal/services"
)

// CreateUserRequest is the payload for POST /users and PUT /users/{id}.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Role     string `json:"role"     binding:"required" example:"customer"`
}

// userStatus maps user service errors to an HTTP status and code.
func userStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEmptyUsername),
		errors.Is(err, services.ErrUnknownRole):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict, ErrCodeUsernameTaken
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, ErrCodeUserNotFound
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// CreateUser godoc
// @ID          createUser
// @Summary     Create a user
// @Description Registers a user account with a unique username and a role of customer or admin.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateUserRequest  true  "User payload"
//
// @Success     201  {object}  domain.User
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Username taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	u, err := h.userSvc.Create(c.Request.Context(), req.Username, req.Role)
	if err != nil {
		status, code := userStatus(err)
		if status == http.StatusInternalServerError {
			code = ErrCodeCreateFailed
		}
		fail(c, status, code, err.Error())
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch a user
// @Tags        Users
// @Produce     json
//
// @Param       id  path  string  true  "User ID"
//
// @Success     200  {object}  domain.User
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeUserNotFound, "user not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Tags        Users
// @Produce     json
//
// @Success     200  {array}   domain.User
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, users)
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user
// @Description Replaces the username and role of an existing account.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "User ID"
// @Param       body  body  handlers.CreateUserRequest  true  "User payload"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Username taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.userSvc.Update(c.Request.Context(), c.Param("id"), req.Username, req.Role); err != nil {
		status, code := userStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	noContent(c)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Description Removes an account. The user's purchase history is retained.
// @Tags        Users
// @Produce     json
//
// @Param       id  path  string  true  "User ID"
//
// @Success     204  {string}  string "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	if err := h.userSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status, code := userStatus(err)
		fail(c, status, code, err.Error())
		return
	}
	noContent(c)
}
