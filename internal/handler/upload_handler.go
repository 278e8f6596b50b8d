package handler

import (
	"net/http"

	"craftlink-chat/internal/services"
	"craftlink-chat/internal/storage"
	"craftlink-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	images *storage.ImageStore
}

func NewUploadHandler(images *storage.ImageStore) *UploadHandler {
	return &UploadHandler{images: images}
}

// Create presigns a PUT for one image attachment. The upload-class rate
// limit is enforced by middleware before this runs.
func (h *UploadHandler) Create(c *gin.Context) {
	var req httpdto.CreateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	if _, ok := services.UserIDFromContext(c.Request.Context()); !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if h.images == nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("image uploads are not configured", "UPLOADS_DISABLED"))
		return
	}

	if err := h.images.ValidateImage(req.ContentType, req.FileSize); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "VALIDATION_FAILED"))
		return
	}

	key := h.images.NewObjectKey(req.ContentType)
	uploadURL, headers, err := h.images.PresignPut(c.Request.Context(), key, req.ContentType, req.FileSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.CreateUploadResponse{
		UploadURL: uploadURL,
		Headers:   headers,
		ImageURL:  h.images.ImageURL(key),
	}))
}
