package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/openpantry/pantry/src/utils/model"

	"github.com/gin-gonic/gin"
)

func (self *Server) onGetStats(c *gin.Context) {
	stats, err := self.facade.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		self.Log.WithError(err).Error("Failed to get user stats")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (self *Server) onGetProfile(c *gin.Context) {
	profile, err := self.facade.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		self.Log.WithError(err).Error("Failed to get profile")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (self *Server) onListCollaborations(c *gin.Context) {
	memberId := c.Query("member_id")
	if memberId == "" {
		memberId = actor(c)
	}

	collaborations, err := self.facade.Collaborations(c.Request.Context(), memberId)
	if err != nil {
		self.Log.WithError(err).Error("Failed to list collaborations")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, collaborations)
}

func (self *Server) onGetCollaboration(c *gin.Context) {
	collaboration, err := self.facade.CollaborationDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		self.Log.WithError(err).Error("Failed to get collaboration")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, collaboration)
}

func (self *Server) onListStories(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	stories, err := self.facade.Stories(c.Request.Context(), limit)
	if err != nil {
		self.Log.WithError(err).Error("Failed to list stories")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, stories)
}
