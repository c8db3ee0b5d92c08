package controllers

import (
	"context"
	"errors"
	"net/http"

	"insureflow/models"
	"insureflow/services"

	"github.com/gin-gonic/gin"
)

// RecordController serves the record store API consumed by both the admin
// tool and the client flow.
type RecordController struct {
	store services.RecordStore
}

func NewRecordController(store services.RecordStore) *RecordController {
	return &RecordController{store: store}
}

// Get handles GET /api/get?id=<orderId>
func (rc *RecordController) Get(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id parameter is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), services.InitialFetchTimeout)
	defer cancel()

	rec, err := rc.store.FetchByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		case errors.Is(err, services.ErrStoreTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "network timeout, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "record store unavailable"})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Save handles POST /api/save with a record body. The server generates the
// identifier; stored records expire after 30 days.
func (rc *RecordController) Save(c *gin.Context) {
	var rec models.InsuranceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record body", "details": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), services.InitialFetchTimeout)
	defer cancel()

	id, err := rc.store.Save(ctx, &rec)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}
