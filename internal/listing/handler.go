// File: internal/listing/handler.go
package listing

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"satonic/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new listing handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("listing_handler"),
	}
}

// RegisterRoutes mounts /auctions, which keeps the web client's response
// shapes, and /listings, which uses the standard success envelope.
// Creating a listing requires authMW.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	auctions := router.Group("/auctions")
	{
		auctions.GET("", h.listListings)
		auctions.GET("/search", h.searchListings)
		auctions.POST("", authMW, h.createListing)
	}

	listings := router.Group("/listings")
	{
		listings.GET("", h.pageListings)
		listings.GET("/:ref", h.getListing)
	}
}

func (h *Handler) createListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create auction: invalid body", zap.Error(err))
		common.RespondLegacyError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}

	seller := common.GetWalletAddressFromContext(c)
	listing, err := h.service.CreateListing(c.Request.Context(), seller, req)
	if err != nil {
		status, msg := legacyError(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Create auction failed", zap.Error(err))
		}
		common.RespondLegacyError(c, status, msg)
		return
	}

	c.JSON(http.StatusCreated, common.LegacyResult{Success: true, AuctionID: listing.ID.String()})
}

// listListings returns every listing newest first as a bare array.
func (h *Handler) listListings(c *gin.Context) {
	listings, err := h.service.ListListings(c.Request.Context())
	if err != nil {
		h.logger.Error("List auctions failed", zap.Error(err))
		common.RespondLegacyError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, ToListingResponses(listings))
}

func (h *Handler) searchListings(c *gin.Context) {
	var query ListingSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondLegacyError(c, http.StatusBadRequest, bindErrorMessage(err))
		return
	}
	listings, err := h.service.SearchListings(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("Search auctions failed", zap.Error(err), zap.String("q", query.SearchTerm))
		common.RespondLegacyError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, ToListingResponses(listings))
}

func (h *Handler) pageListings(c *gin.Context) {
	var filter ListingPageQuery
	if err := c.ShouldBindQuery(&filter); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			common.RespondWithError(c, common.NewValidationAPIError(common.FormatValidationErrors(ve)))
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	page, pageSize := common.GetPaginationParams(c)

	listings, pagination, err := h.service.ListListingsPage(c.Request.Context(), ListingStatus(filter.Status), page, pageSize)
	if err != nil {
		h.logger.Error("Paging listings failed", zap.Error(err), zap.Int("page", page))
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Listings retrieved successfully", ToListingResponses(listings), pagination)
}

func (h *Handler) getListing(c *gin.Context) {
	listing, err := h.service.GetListing(c.Request.Context(), c.Param("ref"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully", ToListingResponse(listing))
}

// legacyError maps service errors onto the {success:false} status codes.
func legacyError(err error) (int, string) {
	apiErr, ok := common.IsAPIError(err)
	if !ok {
		return http.StatusInternalServerError, err.Error()
	}
	msg := apiErr.Message
	if d, ok := apiErr.Details.(string); ok && d != "" {
		msg = d
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return http.StatusBadRequest, msg
	case http.StatusConflict:
		return http.StatusConflict, msg
	case http.StatusNotFound:
		return http.StatusNotFound, msg
	}
	return http.StatusInternalServerError, msg
}

func bindErrorMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "Invalid request body: " + err.Error()
	}
	fields := common.FormatValidationErrors(ve)
	msgs := make([]string, 0, len(fields))
	for _, m := range fields {
		msgs = append(msgs, m)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, " ")
}
