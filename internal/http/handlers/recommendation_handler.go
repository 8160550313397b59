// Package handlers – recommendation endpoint
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pvidalis/go-bookstore-backend/internal/services"
	"github.com/pvidalis/go-bookstore-backend/internal/utils"
)

// RecommendationsResponse is the payload returned by GET /recommendations.
type RecommendationsResponse struct {
	UserID string `json:"user_id" example:"u1"`
	// BookIDs the user has not purchased, best neighbours first.
	Recommendations []string `json:"recommendations"`
}

// Recommendations godoc
// @ID          recommendations
// @Summary     Recommend books
// @Description Suggests books the acting user has not purchased, drawn from the histories of the most similar users. A user with no purchase history receives an empty list.
// @Tags        Recommendations
// @Produce     json
//
// @Param       X-User-ID  header  string  false  "User ID (demo header)"
// @Param       limit      query   int     false  "Maximum suggestions"  minimum(1) default(10)
//
// @Success     200  {object}  handlers.RecommendationsResponse
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     503  {object}  handlers.ErrorResponse  "Store unavailable"
// @Router      /recommendations [get]
func (h *Handlers) Recommendations(c *gin.Context) {
	uid := userID(c)
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	books, err := h.recSvc.Recommend(c.Request.Context(), uid, limit)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeUserNotFound, "user not found")
		case isStoreFault(err):
			fail(c, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, RecommendationsResponse{UserID: uid, Recommendations: books})
}
