package handler

import (
	"net/http"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/HappilyMart/deal-service/internal/ws"
	"github.com/gin-gonic/gin"
)

func (h *Handler) dealsToggle(c *gin.Context) {
	user := h.getUserFromRequest(c)

	postID, ok := h.postIDParam(c)
	if !ok {
		return
	}

	var input dto.DealToggleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	target, _ := model.ParseDealToggleStatus(input.DealToggleStatus)

	// Pending is the reset path: it costs a subscription point and goes
	// through the costed transition, not the plain set.
	var (
		post *model.Post
		err  error
	)
	if target == model.DealPending {
		post, _, err = h.services.Deal.ResetOutcome(c.Request.Context(), postID, user.ID)
	} else {
		post, err = h.services.Deal.SetOutcome(c.Request.Context(), postID, user.ID, target)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, *post)
}

func (h *Handler) dealsChangeValidity(c *gin.Context) {
	user := h.getUserFromRequest(c)

	postID, ok := h.postIDParam(c)
	if !ok {
		return
	}

	var input dto.ChangeValidityRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
		return
	}

	result, err := h.services.Deal.ChangeValidity(c.Request.Context(), postID, user.ID, input.ValidityPeriod)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) dealsValidityOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Deal.ValidityOptions())
}

func (h *Handler) wsConnect(c *gin.Context) {
	user := h.getUserFromRequest(c)

	if err := ws.ServeWs(h.hub, c.Writer, c.Request, user.ID); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewBasicResponse(false, err.Error()))
	}
}
