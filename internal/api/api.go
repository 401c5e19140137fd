package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"traking-shop/internal/catalog"
	"traking-shop/internal/export"
	"traking-shop/internal/models"
	"traking-shop/internal/services/valorant"
	"traking-shop/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type APIHandler struct {
	store       store.Store
	importer    *catalog.Importer
	implementer *catalog.Implementer
	upgrader    websocket.Upgrader
	// import job state, one run at a time
	jobMu     sync.Mutex
	importJob *importJob
}

func SetupRoutes(r *gin.RouterGroup, st store.Store, importer *catalog.Importer, implementer *catalog.Implementer) *APIHandler {
	handler := &APIHandler{
		store:       st,
		importer:    importer,
		implementer: implementer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	cat := r.Group("/catalog")
	{
		cat.POST("/import", handler.StartImport)
		cat.GET("/import/status", handler.ImportStatus)
		cat.GET("/import/ws", handler.ImportStream)
		cat.GET("/skins", handler.ListSkins)
		cat.GET("/facets", handler.Facets)
	}

	products := r.Group("/products/:id/skins")
	{
		products.GET("", handler.AccountSkins)
		products.POST("", handler.AssignSelection)
		products.POST("/random", handler.AssignRandom)
		products.POST("/sample", handler.AssignCount)
		products.POST("/collection", handler.AssignCollection)
		products.GET("/export", handler.ExportAccountSkins)
		products.DELETE("/:linkId", handler.RemoveLink)
	}

	return handler
}

// -------- Catalog import --------

type importJob struct {
	Running    bool                  `json:"running"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at"`
	Progress   catalog.ProgressEvent `json:"progress"`
	Result     *catalog.ImportResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// beginImport claims the import slot; it returns false while another run holds it.
func (h *APIHandler) beginImport() (*importJob, bool) {
	h.jobMu.Lock()
	defer h.jobMu.Unlock()
	if h.importJob != nil && h.importJob.Running {
		return nil, false
	}
	job := &importJob{Running: true, StartedAt: time.Now()}
	h.importJob = job
	return job, true
}

// runImport executes the import for job, forwarding progress to observer.
// The run is detached from request cancellation so a closed client does not cut a batch short.
func (h *APIHandler) runImport(ctx context.Context, job *importJob, observer func(catalog.ProgressEvent)) (catalog.ImportResult, error) {
	res, err := h.importer.Run(context.WithoutCancel(ctx), func(e catalog.ProgressEvent) {
		h.jobMu.Lock()
		job.Progress = e
		h.jobMu.Unlock()
		if observer != nil {
			observer(e)
		}
	})

	h.jobMu.Lock()
	job.Running = false
	now := time.Now()
	job.FinishedAt = &now
	if err != nil {
		job.Error = err.Error()
	} else {
		job.Result = &res
	}
	h.jobMu.Unlock()
	return res, err
}

func (h *APIHandler) StartImport(c *gin.Context) {
	job, ok := h.beginImport()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "import already running", "status": h.snapshot()})
		return
	}
	res, err := h.runImport(c.Request.Context(), job, nil)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *APIHandler) ImportStatus(c *gin.Context) {
	st := h.snapshot()
	if st == nil {
		c.JSON(http.StatusOK, gin.H{"status": gin.H{"running": false}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (h *APIHandler) snapshot() *importJob {
	h.jobMu.Lock()
	defer h.jobMu.Unlock()
	if h.importJob == nil {
		return nil
	}
	cp := *h.importJob
	return &cp
}

type streamMessage struct {
	Type   string                 `json:"type"`
	Event  *catalog.ProgressEvent `json:"event,omitempty"`
	Result *catalog.ImportResult  `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ImportStream runs an import over a websocket, pushing progress events and the final scorecard.
func (h *APIHandler) ImportStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	job, ok := h.beginImport()
	if !ok {
		_ = conn.WriteJSON(streamMessage{Type: "error", Error: "import already running"})
		return
	}

	// a slow or vanished client must not stall the import
	send := func(m streamMessage) {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(m); err != nil {
			log.Ctx(c.Request.Context()).Debug().Err(err).Msg("dropping progress message")
		}
	}

	res, err := h.runImport(c.Request.Context(), job, func(e catalog.ProgressEvent) {
		send(streamMessage{Type: "progress", Event: &e})
	})
	if err != nil {
		send(streamMessage{Type: "error", Error: err.Error()})
	} else {
		send(streamMessage{Type: "result", Result: &res})
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// -------- Catalog browsing --------

func (h *APIHandler) ListSkins(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	skins, total, err := h.store.ListSkins(c.Request.Context(), store.SkinFilter{
		Weapon:     c.Query("weapon"),
		Rarity:     c.Query("rarity"),
		Collection: c.Query("collection"),
		Search:     c.Query("search"),
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": skins, "total": total, "page": page, "page_size": size})
}

func (h *APIHandler) Facets(c *gin.Context) {
	f, err := h.store.Facets(c.Request.Context())
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, f)
}

// -------- Account skins --------

func (h *APIHandler) AccountSkins(c *gin.Context) {
	product, links, err := h.implementer.AccountSkins(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product, "links": links, "total": len(links)})
}

func (h *APIHandler) AssignRandom(c *gin.Context) {
	res, err := h.implementer.ImplementRandom(c.Request.Context(), c.Param("id"))
	h.writeAssign(c, res, err)
}

func (h *APIHandler) AssignCount(c *gin.Context) {
	var req struct {
		Count int `json:"count" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.implementer.ImplementCount(c.Request.Context(), c.Param("id"), req.Count)
	h.writeAssign(c, res, err)
}

func (h *APIHandler) AssignCollection(c *gin.Context) {
	var req struct {
		Collection string `json:"collection" binding:"required"`
		Extra      int    `json:"extra" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.implementer.ImplementCollection(c.Request.Context(), c.Param("id"), req.Collection, req.Extra)
	h.writeAssign(c, res, err)
}

func (h *APIHandler) AssignSelection(c *gin.Context) {
	var req struct {
		SkinIDs []string `json:"skin_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.implementer.ImplementSelection(c.Request.Context(), c.Param("id"), req.SkinIDs)
	h.writeAssign(c, res, err)
}

func (h *APIHandler) RemoveLink(c *gin.Context) {
	if err := h.implementer.RemoveLink(c.Request.Context(), c.Param("id"), c.Param("linkId")); err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "removed"})
}

func (h *APIHandler) ExportAccountSkins(c *gin.Context) {
	product, links, err := h.implementer.AccountSkins(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	skins := make([]models.Skin, 0, len(links))
	for _, l := range links {
		if l.Skin != nil {
			skins = append(skins, *l.Skin)
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="account-%s-skins.xlsx"`, product.ID))
	if err := export.AccountSkinsXLSX(c.Writer, product, skins); err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("export failed")
		c.Status(http.StatusInternalServerError)
	}
}

func (h *APIHandler) writeAssign(c *gin.Context, res catalog.AssignResult, err error) {
	if err != nil {
		h.writeError(c, err, &res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeError maps pipeline errors onto HTTP statuses. A partial scorecard, when
// present, is returned alongside the error.
func (h *APIHandler) writeError(c *gin.Context, err error, partial *catalog.AssignResult) {
	var (
		empty       *catalog.EmptyResultError
		transport   *valorant.TransportError
		invalid     *valorant.InvalidResponseError
		persistence *catalog.PersistenceError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &empty):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &transport), errors.As(err, &invalid):
		status = http.StatusBadGateway
	case errors.Is(err, catalog.ErrNothingToAssign):
		status = http.StatusConflict
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidCount):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
	}
	body := gin.H{"error": err.Error()}
	if partial != nil && errors.As(err, &persistence) {
		body["result"] = partial
	}
	c.JSON(status, body)
}
