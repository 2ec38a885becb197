package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fisiohome/fisiohome-api/internal/middleware"
	"github.com/fisiohome/fisiohome-api/internal/models"
)

// claimsFromContext extracts the authenticated claims set by the JWT
// middleware. The bool is false on unauthenticated requests.
func claimsFromContext(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}

// actorFromContext is a convenience over claimsFromContext.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims, ok := claimsFromContext(c)
	if !ok {
		return models.Actor{}, false
	}
	return claims.Actor(), true
}
