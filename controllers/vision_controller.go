package controllers

import (
	"net/http"

	"insureflow/services"

	"github.com/gin-gonic/gin"
)

// VisionController exposes the document-recognition integration used by
// the admin form to auto-fill fields from photographed documents.
type VisionController struct {
	client *services.VisionClient
}

func NewVisionController(client *services.VisionClient) *VisionController {
	return &VisionController{client: client}
}

type visionRequest struct {
	Image string `json:"image" binding:"required"`
}

// IDCard handles POST /api/vision/idcard.
func (vc *VisionController) IDCard(c *gin.Context) {
	var req visionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image payload is required"})
		return
	}
	fields, err := vc.client.RecognizeIDCard(req.Image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fields)
}

// Vehicle handles POST /api/vision/vehicle.
func (vc *VisionController) Vehicle(c *gin.Context) {
	var req visionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image payload is required"})
		return
	}
	fields, err := vc.client.RecognizeVehicleLicense(req.Image)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, fields)
}
