package httpdto

// CreateUploadRequest is used for POST /v1/uploads
type CreateUploadRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// CreateUploadResponse carries the presigned PUT target plus the opaque
// URL to reference from a message once the upload completes.
type CreateUploadResponse struct {
	UploadURL string            `json:"upload_url"`
	Headers   map[string]string `json:"headers,omitempty"`
	ImageURL  string            `json:"image_url"`
}
