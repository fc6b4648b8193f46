package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) postIDParam(c *gin.Context) (int64, bool) {
	postIDString := strings.TrimSpace(c.Param("postID"))
	postID, err := strconv.ParseInt(postIDString, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, errInvalidPostID.Error()))
		return 0, false
	}
	return postID, true
}

func (h *Handler) postsCreate(c *gin.Context) {
	user := h.getUserFromRequest(c)

	var input dto.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	createdPost, err := h.services.Post.Create(c.Request.Context(), user.ID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, *createdPost)
}

func (h *Handler) postsGetByID(c *gin.Context) {
	postID, ok := h.postIDParam(c)
	if !ok {
		return
	}

	var viewerID *uuid.UUID
	if user := h.getUserFromRequest(c); user != nil {
		viewerID = &user.ID
	}

	post, err := h.services.Post.FindByID(c.Request.Context(), postID, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *Handler) postsUnlock(c *gin.Context) {
	user := h.getUserFromRequest(c)

	postID, ok := h.postIDParam(c)
	if !ok {
		return
	}

	result, err := h.services.Post.Unlock(c.Request.Context(), postID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) postsClose(c *gin.Context) {
	user := h.getUserFromRequest(c)

	postID, ok := h.postIDParam(c)
	if !ok {
		return
	}

	post, err := h.services.Post.Close(c.Request.Context(), postID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, *post)
}

func (h *Handler) userPostsStats(c *gin.Context) {
	user := h.getUserFromRequest(c)

	var input dto.GetPostsStatsRequest
	if err := c.ShouldBindQuery(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	stats, err := h.services.Post.FindOwnerPostStats(c.Request.Context(), user.ID, input.Limit, input.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) userCredits(c *gin.Context) {
	user := h.getUserFromRequest(c)

	balance, err := h.services.Ledger.FindBalance(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

func (h *Handler) userLedger(c *gin.Context) {
	user := h.getUserFromRequest(c)

	var input dto.GetLedgerRequest
	if err := c.ShouldBindQuery(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	entries, err := h.services.Ledger.FindEntries(c.Request.Context(), user.ID, input.Limit, input.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
