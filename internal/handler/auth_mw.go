package handler

import (
	"net/http"
	"os"
	"strings"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/pkg/utils"
	"github.com/gin-gonic/gin"
)

func (h *Handler) authMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, dto.NewBasicResponse(false, errNotAuthorized.Error()))
		c.Abort()
		return
	}

	accessToken := strings.Split(header, " ")[1]
	if accessToken == "" {
		c.JSON(http.StatusUnauthorized, dto.NewBasicResponse(false, errNotAuthorized.Error()))
		c.Abort()
		return
	}

	claims, err := utils.DecodeJWT(accessToken, []byte(os.Getenv("ACCESS_SECRET")))
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.NewBasicResponse(false, errNotAuthorized.Error()))
		c.Abort()
		return
	}

	user, err := h.getUserDataFromClaims(c.Request.Context(), claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewBasicResponse(false, err.Error()))
		c.Abort()
		return
	}

	c.Set("cached-user", *user)

	c.Next()
}
