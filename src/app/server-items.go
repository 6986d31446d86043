package app

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/openpantry/pantry/src/app/request"
	"github.com/openpantry/pantry/src/app/response"
	"github.com/openpantry/pantry/src/lifecycle"
	"github.com/openpantry/pantry/src/query"
	"github.com/openpantry/pantry/src/utils/model"

	"github.com/gin-gonic/gin"
)

func itemFilterFromQuery(c *gin.Context) (filter model.ItemFilter) {
	filter.OwnerId = c.Query("owner_id")
	filter.Status = model.ItemStatus(c.Query("status"))
	filter.ItemType = model.ItemType(c.Query("item_type"))
	filter.Category = c.Query("category")
	filter.CollaborationId = c.Query("collaboration_id")
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))
	return
}

func (self *Server) onListItems(c *gin.Context) {
	items, err := self.facade.Items(c.Request.Context(), itemFilterFromQuery(c))
	if err != nil {
		self.Log.WithError(err).Error("Failed to list items")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, response.ItemsToResponse(items))
}

func (self *Server) onNearbyItems(c *gin.Context) {
	var bounds model.GeoBounds
	var err error
	bounds.MinLatitude, err = strconv.ParseFloat(c.Query("min_lat"), 64)
	if err == nil {
		bounds.MaxLatitude, err = strconv.ParseFloat(c.Query("max_lat"), 64)
	}
	if err == nil {
		bounds.MinLongitude, err = strconv.ParseFloat(c.Query("min_lon"), 64)
	}
	if err == nil {
		bounds.MaxLongitude, err = strconv.ParseFloat(c.Query("max_lon"), 64)
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad bounds"})
		return
	}

	items, err := self.facade.NearbyItems(c.Request.Context(), bounds, itemFilterFromQuery(c))
	if err != nil {
		if errors.Is(err, query.ErrInvalidLocation) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		self.Log.WithError(err).Error("Failed to list nearby items")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, response.ItemsToResponse(items))
}

func (self *Server) onCreateItem(c *gin.Context) {
	ownerId := actor(c)
	if ownerId == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var in = new(request.CreateItem)
	err := c.ShouldBindJSON(in)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err = query.ValidateLocation(in.Latitude, in.Longitude); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := &model.Item{
		OwnerId:     ownerId,
		ItemType:    model.ItemType(in.ItemType),
		Category:    in.Category,
		Quantity:    in.Quantity,
		Title:       in.Title,
		Description: in.Description,
		Tags:        in.Tags,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
	}
	if in.CollaborationId != "" {
		item.CollaborationId = sql.NullString{String: in.CollaborationId, Valid: true}
	}

	err = self.engine.CreateItem(c.Request.Context(), item)
	if err != nil {
		self.Log.WithError(err).Error("Failed to create item")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (self *Server) onGetItemDetails(c *gin.Context) {
	details, err := self.facade.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		self.Log.WithError(err).Error("Failed to get item details")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, response.ItemDetailsToResponse(details))
}

func (self *Server) onDeleteItem(c *gin.Context) {
	err := self.engine.DeleteItem(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		self.abortLifecycle(c, err, "Failed to delete item")
		return
	}

	c.Status(http.StatusNoContent)
}

func (self *Server) onCompleteItem(c *gin.Context) {
	var in = new(request.CompleteItem)
	err := c.ShouldBindJSON(in)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = self.engine.MarkCompleted(c.Request.Context(), c.Param("id"), in.ClaimId, actor(c))
	if err != nil {
		self.abortLifecycle(c, err, "Failed to complete item")
		return
	}

	c.Status(http.StatusNoContent)
}

// abortLifecycle maps lifecycle engine errors onto HTTP statuses.
// Policy violations are the caller's fault, everything else is ours.
func (self *Server) abortLifecycle(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrNotOwner),
		errors.Is(err, lifecycle.ErrNotClaimer):
		c.AbortWithStatus(http.StatusForbidden)
	case errors.Is(err, lifecycle.ErrSelfClaim),
		errors.Is(err, lifecycle.ErrNotDeletable),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		self.Log.WithError(err).Error(message)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
