package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

// NoticeSource exposes the currently visible notice.
type NoticeSource interface {
	Current() (domain.Notice, bool)
}

// SyncHandler handles sync and notice endpoints.
type SyncHandler struct {
	syncer  *app.Synchronizer
	notices NoticeSource
}

// NewSyncHandler creates a new sync handler. notices may be nil.
func NewSyncHandler(syncer *app.Synchronizer, notices NoticeSource) *SyncHandler {
	return &SyncHandler{syncer: syncer, notices: notices}
}

// SyncNow handles POST /api/v1/sync
// Runs a sync immediately. Returns 409 while another sync runs and 502 when
// the remote could not be reached.
//
// @Summary Sync with the server
// @Tags sync
// @Produce json
// @Success 200 {object} dto.SyncResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/sync [post]
func (h *SyncHandler) SyncNow(c *gin.Context) {
	summary, err := h.syncer.SyncNow(c.Request.Context(), app.TriggerManual)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncResponse(summary))
}

// SyncStatus handles GET /api/v1/sync/status
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSyncStatusResponse(h.syncer.Status()))
}

// CurrentNotice handles GET /api/v1/notice
// Returns 204 when no notice is visible.
func (h *SyncHandler) CurrentNotice(c *gin.Context) {
	if h.notices == nil {
		c.Status(http.StatusNoContent)
		return
	}

	n, ok := h.notices.Current()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, dto.NewNoticeResponse(n))
}

// RegisterSyncRoutes registers sync routes on the given router group.
func (h *SyncHandler) RegisterSyncRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync", h.SyncNow)
	rg.GET("/sync/status", h.SyncStatus)
	rg.GET("/notice", h.CurrentNotice)
}
