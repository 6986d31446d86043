package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/openpantry/pantry/src/app/request"
	"github.com/openpantry/pantry/src/app/response"
	"github.com/openpantry/pantry/src/query"
	"github.com/openpantry/pantry/src/utils/model"

	"github.com/gin-gonic/gin"
)

func (self *Server) onListClaims(c *gin.Context) {
	var filter model.ClaimFilter
	filter.ItemId = c.Query("item_id")
	filter.Status = model.ClaimStatus(c.Query("status"))
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	// Claim listings are always scoped to the requesting user,
	// either as claimer or as item owner.
	switch c.Query("role") {
	case "owner":
		filter.OwnerId = actor(c)
	default:
		filter.ClaimerId = actor(c)
	}

	claims, err := self.facade.Claims(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, query.ErrMissingUser) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		self.Log.WithError(err).Error("Failed to list claims")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, response.ClaimsToResponse(claims))
}

func (self *Server) onCreateClaim(c *gin.Context) {
	claimerId := actor(c)
	if claimerId == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var in = new(request.CreateClaim)
	err := c.ShouldBindJSON(in)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := self.engine.CreateClaim(c.Request.Context(), in.ItemId, claimerId, in.Message)
	if err != nil {
		self.abortLifecycle(c, err, "Failed to create claim")
		return
	}

	c.JSON(http.StatusCreated, claim)
}

func (self *Server) onUpdateClaim(c *gin.Context) {
	var in = new(request.UpdateClaim)
	err := c.ShouldBindJSON(in)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claim, err := self.engine.UpdateClaim(c.Request.Context(), c.Param("id"), actor(c), model.ClaimStatus(in.Status), in.Message)
	if err != nil {
		self.abortLifecycle(c, err, "Failed to update claim")
		return
	}

	c.JSON(http.StatusOK, claim)
}

func (self *Server) onDeleteClaim(c *gin.Context) {
	err := self.engine.DeleteClaim(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		self.abortLifecycle(c, err, "Failed to delete claim")
		return
	}

	c.Status(http.StatusNoContent)
}
