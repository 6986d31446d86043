package app

import (
	"errors"
	"net/http"

	"github.com/openpantry/pantry/src/geocode"

	"github.com/gin-gonic/gin"
)

func (self *Server) onGeocode(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	result, err := self.geocoder.Lookup(c.Request.Context(), q, c.Query("country"))
	if err != nil {
		if errors.Is(err, geocode.ErrNoResult) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		self.Log.WithError(err).Error("Failed to geocode")
		c.AbortWithStatus(http.StatusBadGateway)
		return
	}

	c.JSON(http.StatusOK, result)
}
