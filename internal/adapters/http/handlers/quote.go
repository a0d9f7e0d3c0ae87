package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
)

// importFormField is the multipart field carrying an import file.
const importFormField = "file"

// exportFilename is the suggested name of the export attachment.
const exportFilename = "quotes.json"

// QuoteHandler handles quote collection endpoints.
type QuoteHandler struct {
	coll *app.QuoteCollection
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(coll *app.QuoteCollection) *QuoteHandler {
	return &QuoteHandler{coll: coll}
}

// ListQuotes handles GET /api/v1/quotes
// Returns the quotes matching ?category= and ?q= and saves both as preferences.
//
// @Summary List quotes
// @Tags quotes
// @Produce json
// @Param category query string false "Category filter, \"all\" for none"
// @Param q query string false "Case-insensitive search text"
// @Success 200 {object} dto.QuoteListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [get]
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var query dto.ListQuotesQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		respondBindError(c, err)
		return
	}

	quotes := h.coll.Filter(c.Request.Context(), query.Category, query.Search)
	prefs := h.coll.Preferences(c.Request.Context())

	c.JSON(http.StatusOK, dto.QuoteListResponse{
		Quotes:   dto.NewQuoteResponses(quotes),
		Count:    len(quotes),
		Total:    h.coll.Len(),
		Category: prefs.Category,
		Search:   prefs.Search,
	})
}

// AddQuote handles POST /api/v1/quotes
//
// @Summary Add a quote
// @Tags quotes
// @Accept json
// @Produce json
// @Param quote body dto.AddQuoteRequest true "Quote to add"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes [post]
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	q, err := h.coll.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(q))
}

// RandomQuote handles GET /api/v1/quotes/random
// Picks from the pool filtered by ?category= and ?q=; 404 when the pool is empty.
//
// @Summary Show a random quote
// @Tags quotes
// @Produce json
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quotes/random [get]
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	var query dto.ListQuotesQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		respondBindError(c, err)
		return
	}

	q, err := h.coll.Random(c.Request.Context(), query.Category, query.Search)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// LastQuote handles GET /api/v1/quotes/last
func (h *QuoteHandler) LastQuote(c *gin.Context) {
	q, err := h.coll.LastViewed(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(q))
}

// ExportQuotes handles GET /api/v1/quotes/export
// Streams the whole collection as an indented JSON attachment.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	data, err := h.coll.Export()
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// ImportQuotes handles POST /api/v1/quotes/import
// Accepts either a raw JSON array body or a multipart form with a "file" field.
//
// @Summary Import quotes
// @Tags quotes
// @Accept json
// @Accept mpfd
// @Produce json
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/quotes/import [post]
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	data, err := readImportBody(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			dto.AbortWithCode(c, dto.ErrorCodeTooLarge, fmt.Sprintf("import exceeds %d bytes", tooLarge.Limit))
			return
		}

		dto.AbortWithCode(c, dto.ErrorCodeBadRequest, err.Error())
		return
	}

	n, err := h.coll.Import(c.Request.Context(), data)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Imported: n, Total: h.coll.Len()})
}

// readImportBody returns the uploaded file contents for multipart requests
// and the raw body otherwise.
func readImportBody(c *gin.Context) ([]byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, fmt.Errorf("reading request body failed: %w", err)
		}

		return data, nil
	}

	header, err := c.FormFile(importFormField)
	if err != nil {
		if tooLarge := (*http.MaxBytesError)(nil); errors.As(err, &tooLarge) {
			return nil, err
		}

		return nil, errors.New(`multipart upload requires a "file" field`)
	}

	return readFormFile(header)
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, errors.New("opening uploaded file failed")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("reading uploaded file failed")
	}

	return data, nil
}

// ListCategories handles GET /api/v1/categories
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoriesResponse{Categories: h.coll.Categories()})
}

// GetPreferences handles GET /api/v1/preferences
func (h *QuoteHandler) GetPreferences(c *gin.Context) {
	prefs := h.coll.Preferences(c.Request.Context())

	c.JSON(http.StatusOK, dto.PreferencesResponse{Category: prefs.Category, Search: prefs.Search})
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/last", h.LastQuote)
	quotes.GET("/export", h.ExportQuotes)
	quotes.POST("/import", h.ImportQuotes)

	rg.GET("/categories", h.ListCategories)
	rg.GET("/preferences", h.GetPreferences)
}

// respondBindError writes a 400 for binding or struct validation failures.
func respondBindError(c *gin.Context, err error) {
	if fields := dto.ValidationErrors(err); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			fields,
		).WithTraceID(dto.GetTraceID(c)))

		return
	}

	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
		dto.ErrorCodeBadRequest,
		"malformed request",
	).WithTraceID(dto.GetTraceID(c)))
}
