package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/zfogg/bizfeed/backend/internal/errors"
	"github.com/zfogg/bizfeed/backend/internal/storage"
	"github.com/zfogg/bizfeed/backend/internal/util"
)

const (
	uploadField       = "media"
	mediaCacheControl = "public, max-age=31536000"
)

// Upload stores one image or video for a later post
// POST /api/v1/upload (multipart field "media")
func (h *Handlers) Upload(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	maxSize := h.media.MaxSize()
	if maxSize > 0 {
		// Multipart framing adds a little on top of the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+1<<20)
	}

	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.RespondWithAPIError(c, apierrors.TooLarge(fmt.Sprintf("file exceeds the %d MB upload limit", maxSize>>20)))
			return
		}
		util.RespondError(c, storage.ErrEmptyUpload)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.RespondBadRequest(c, "unreadable upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		util.RespondBadRequest(c, "unreadable upload")
		return
	}

	result, err := h.media.Store(c.Request.Context(), storage.Upload{
		UserID:      user.ID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, result)
}

// ServeImage streams an image stored in the database
// GET /images/:id
func (h *Handlers) ServeImage(c *gin.Context) {
	h.serveBlob(c, storage.KindImage)
}

// ServeVideo streams a video stored in the database, with range support
// GET /videos/:id
func (h *Handlers) ServeVideo(c *gin.Context) {
	h.serveBlob(c, storage.KindVideo)
}

func (h *Handlers) serveBlob(c *gin.Context, kind storage.Kind) {
	blob, err := h.media.Blob(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.Header("Content-Type", blob.MimeType)
	c.Header("Cache-Control", mediaCacheControl)
	http.ServeContent(c.Writer, c.Request, "", blob.CreatedAt, bytes.NewReader(blob.Data))
}
