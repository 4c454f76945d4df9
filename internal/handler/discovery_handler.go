// internal/handler/discovery_handler.go
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/utils"
)

// DeviceScanner lists attached devices
type DeviceScanner interface {
	ScanAll(ctx context.Context) ([]*model.DiscoveredDevice, error)
	ScanByType(ctx context.Context, scannerType string) ([]*model.DiscoveredDevice, error)
	GetAvailableScanners() []string
}

// DiscoveryHandler handles device discovery requests
type DiscoveryHandler struct {
	scanner DeviceScanner
	logger  *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(scanner DeviceScanner, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		scanner: scanner,
		logger:  utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ScanDevices scans for attached devices
// @Summary List devices
// @Description List serial ports and USB devices matching the configured vendor
// @Tags Discovery
// @Produce json
// @Param type query string false "Scan type" Enums(all, serial, usb) default(all)
// @Success 200 {object} utils.APIResponse{data=object{devices_found=int,devices=[]model.DiscoveredDevice,scanners=[]string}} "Device scan completed"
// @Failure 400 {object} utils.APIResponse "Unknown scan type"
// @Router /devices [get]
func (h *DiscoveryHandler) ScanDevices(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")

	var (
		devices []*model.DiscoveredDevice
		err     error
	)
	if scanType == "all" {
		devices, err = h.scanner.ScanAll(c.Request.Context())
	} else {
		devices, err = h.scanner.ScanByType(c.Request.Context(), scanType)
	}
	if err != nil {
		h.logger.Warn("Failed to scan devices", zap.String("type", scanType), zap.Error(err))
		utils.ErrorResponse(c, http.StatusBadRequest, "Failed to scan devices", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device scan completed", gin.H{
		"devices_found": len(devices),
		"devices":       devices,
		"scanners":      h.scanner.GetAvailableScanners(),
	})
}
