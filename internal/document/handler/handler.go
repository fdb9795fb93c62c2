package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/ocrsearch/internal/document/service"
	"github.com/gogotex/ocrsearch/internal/ingest"
	"github.com/gogotex/ocrsearch/internal/storage"
	"github.com/gogotex/ocrsearch/pkg/logger"
)

// uploadField is the multipart field carrying the PDF.
const uploadField = "pdf"

var notFound = gin.H{"error": "Not found"}

type documentHandler struct {
	svc            service.Service
	maxUploadBytes int64
}

// RegisterDocumentRoutes mounts the ingestion, search and page routes.
// maxUploadBytes <= 0 disables the upload size limit.
func RegisterDocumentRoutes(r *gin.Engine, svc service.Service, maxUploadBytes int64) {
	h := &documentHandler{svc: svc, maxUploadBytes: maxUploadBytes}

	api := r.Group("/api")
	api.GET("/recent", h.recent)
	api.GET("/search", h.search)
	api.GET("/list/documents", h.listDocuments)
	api.GET("/page/:id", h.pageDetail)
	api.POST("/upload", h.upload)
	api.GET("/documents/:id/status", h.status)
	api.DELETE("/documents/:id", h.deleteDocument)

	r.GET("/page-image/:id", h.pageImage(false))
	r.GET("/page-zoom-image/:id", h.pageImage(true))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func internalError(c *gin.Context, op string, err error) {
	logger.Errorf("%s: %v", op, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (h *documentHandler) recent(c *gin.Context) {
	out, err := h.svc.Recent(c.Request.Context())
	if err != nil {
		internalError(c, "recent", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *documentHandler) search(c *gin.Context) {
	out, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		internalError(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *documentHandler) listDocuments(c *gin.Context) {
	out, err := h.svc.ListDocuments(c.Request.Context())
	if err != nil {
		internalError(c, "list documents", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *documentHandler) pageDetail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	p, err := h.svc.GetPage(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		internalError(c, "page detail", err)
		return
	}
	text := ""
	if p.OCRText != nil {
		text = *p.OCRText
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                p.ID,
		"page_number":       p.PageNumber,
		"filename":          p.Filename,
		"ocr_text":          text,
		"regular_image_url": fmt.Sprintf("/page-image/%d", p.ID),
		"zoomed_image_url":  fmt.Sprintf("/page-zoom-image/%d", p.ID),
	})
}

func (h *documentHandler) pageImage(zoomed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		img, err := h.svc.PageImage(c.Request.Context(), id, zoomed)
		if errors.Is(err, service.ErrNotFound) {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		if err != nil {
			internalError(c, "page image", err)
			return
		}
		if img.RedirectURL != "" {
			c.Redirect(http.StatusFound, img.RedirectURL)
			return
		}
		c.File(img.Path)
	}
}

func (h *documentHandler) upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		case errors.Is(err, http.ErrMissingFile) && c.Request.MultipartForm != nil && c.Request.MultipartForm.Value[uploadField] != nil:
			// a file part with an empty filename is parsed as a plain value
			c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file part named 'pdf'"})
		}
		return
	}
	if fh.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if !storage.AllowedFile(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		internalError(c, "open upload", err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		doc, err := h.svc.UploadAsync(ctx, fh.Filename, f)
		if err != nil {
			h.uploadFailed(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"document_id": doc.ID,
			"status":      service.StatePending,
			"status_url":  fmt.Sprintf("/api/documents/%d/status", doc.ID),
		})
		return
	}

	res, err := h.svc.Upload(ctx, fh.Filename, f)
	if err != nil {
		h.uploadFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// uploadFailed reports a classified error; the raw message is only logged.
func (h *documentHandler) uploadFailed(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrInvalidFilename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}
	var ie *ingest.Error
	if !errors.As(err, &ie) {
		internalError(c, "upload", err)
		return
	}
	logger.Errorf("upload failed: %v", err)
	body := gin.H{"error": "Ingestion failed", "code": string(ie.Stage)}
	if ie.DocumentID > 0 {
		body["document_id"] = ie.DocumentID
	}
	c.JSON(http.StatusInternalServerError, body)
}

func (h *documentHandler) status(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	st, err := h.svc.Status(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	if err != nil {
		internalError(c, "status", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *documentHandler) deleteDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.JSON(http.StatusNotFound, notFound)
		return
	}
	err := h.svc.DeleteDocument(c.Request.Context(), id)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, notFound)
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		internalError(c, "delete document", err)
	}
}
