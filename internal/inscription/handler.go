// File: internal/inscription/handler.go
package inscription

import (
	"net/http"
	"strings"

	"satonic/internal/common"
	"satonic/internal/ordiscan"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler proxies inscription lookups to the inscription provider.
type Handler struct {
	source ordiscan.InscriptionSource
	logger *zap.Logger
}

func NewHandler(source ordiscan.InscriptionSource, logger *zap.Logger) *Handler {
	return &Handler{source: source, logger: logger.Named("inscription_handler")}
}

// RegisterRoutes mounts GET /nfts/:address. The bare /nfts path answers 400.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/nfts", h.addressInscriptions)
	router.GET("/nfts/:address", h.addressInscriptions)
}

func (h *Handler) addressInscriptions(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	if address == "" {
		common.RespondPlainError(c, http.StatusBadRequest, "Address is required")
		return
	}

	doc, err := h.source.AddressInscriptions(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("Error fetching NFTs", zap.String("address", address), zap.Error(err))
		common.RespondPlainError(c, http.StatusInternalServerError, "Failed to fetch NFTs")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}
