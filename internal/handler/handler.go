package handler

import (
	"context"

	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/service"
	"github.com/HappilyMart/deal-service/internal/ws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

type Handler struct {
	services      *service.Service
	hub           *ws.Hub
	unlockLimiter *IPRateLimiter
}

func New(services *service.Service, hub *ws.Hub) *Handler {
	return &Handler{
		services:      services,
		hub:           hub,
		unlockLimiter: NewIPRateLimiter(rate.Limit(1), 3),
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	r := gin.New()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{viper.GetString("client.origin")},
		AllowMethods:     []string{"POST", "GET", "PUT", "PATCH", "DELETE"},
		AllowCredentials: true,
	}))

	v1 := r.Group("/api/v1")
	{
		posts := v1.Group("/posts")
		{
			posts.POST("", h.authMiddleware, h.postsCreate)

			post := posts.Group("/:postID")
			{
				post.GET("", h.notRequiredAuthMiddleware, h.postsGetByID)
				post.POST("/unlock", h.authMiddleware, h.rateLimitMiddleware(h.unlockLimiter), h.postsUnlock)
				post.PUT("/deal-toggle", h.authMiddleware, h.dealsToggle)
				post.PUT("/validity", h.authMiddleware, h.dealsChangeValidity)
				post.GET("/validity-options", h.dealsValidityOptions)
				post.POST("/close", h.authMiddleware, h.postsClose)
			}
		}

		user := v1.Group("/user")
		{
			user.GET("/posts-stats", h.authMiddleware, h.userPostsStats)
			user.GET("/credits", h.authMiddleware, h.userCredits)
			user.GET("/ledger", h.authMiddleware, h.userLedger)
		}

		v1.GET("/ws", h.authMiddleware, h.wsConnect)
	}

	return r
}

func (h *Handler) getUserDataFromClaims(ctx context.Context, claims jwt.MapClaims) (*model.CachedUser, error) {
	idString, _ := claims["id"].(string)
	id, err := uuid.Parse(idString)
	if err != nil {
		return nil, err
	}

	username, _ := claims["username"].(string)

	user, err := h.services.UserCache.EnsureFromClaims(ctx, id, username)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (h *Handler) getUserFromRequest(c *gin.Context) *model.CachedUser {
	userReq, _ := c.Get("cached-user")

	user, ok := userReq.(model.CachedUser)
	if !ok {
		return nil
	}

	return &user
}
