package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qongirat/appeals-api/internal/dto"
	appErrors "github.com/qongirat/appeals-api/pkg/errors"
	"github.com/qongirat/appeals-api/pkg/response"
	"github.com/qongirat/appeals-api/pkg/storage"
)

// FileHandler stores evidence uploads and serves them back through signed
// tokens.
type FileHandler struct {
	store        *storage.LocalStorage
	signer       *storage.SignedURLSigner
	maxSizeBytes int64
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(store *storage.LocalStorage, signer *storage.SignedURLSigner, maxSizeBytes int64) *FileHandler {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 20 << 20
	}
	return &FileHandler{store: store, signer: signer, maxSizeBytes: maxSizeBytes}
}

// Upload godoc
// @Summary Upload an evidence file
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File content"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSizeBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}
	if fileHeader.Size > h.maxSizeBytes {
		response.Error(c, appErrors.New("FILE_TOO_LARGE", http.StatusRequestEntityTooLarge, "file exceeds the upload limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	stored, err := h.store.SaveStream(storage.UniqueName(fileHeader.Filename), file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}

	response.Created(c, dto.UploadResponse{FilePath: stored})
}

// SignedURL godoc
// @Summary Issue a signed download token for a stored file
// @Tags Files
// @Produce json
// @Param name path string true "Stored file name"
// @Success 200 {object} response.Envelope
// @Router /files/{name}/url [get]
func (h *FileHandler) SignedURL(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file name is required"))
		return
	}

	token, expiresAt, err := h.signer.Generate(name, name)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign url"))
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

// Download godoc
// @Summary Download a file by signed token
// @Tags Files
// @Produce application/octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	_, relPath, _, err := h.signer.Parse(token, false)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired token"))
		return
	}

	c.FileAttachment(h.store.Path(relPath), relPath)
}
