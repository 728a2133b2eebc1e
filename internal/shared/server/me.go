package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/shared/server/middleware"
	"jobapplier-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID  string `json:"userId"`
	Guest   bool   `json:"guest"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok || id.OwnerID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid identity", nil)
		return
	}
	respond.OK(c, meResponse{
		UserID:  id.OwnerID,
		Guest:   id.Guest,
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
	})
}
