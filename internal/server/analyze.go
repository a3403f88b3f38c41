package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/rxguard/internal/analysis"
	"github.com/Skufu/rxguard/internal/llm"
)

var errNotImage = errors.New("uploaded file is not an image")

func (h *handlers) analyze(c *gin.Context) {
	var files []*multipart.FileHeader
	form, err := c.MultipartForm()
	switch {
	case err == nil:
		if form != nil {
			for _, fh := range form.File["image"] {
				if fh != nil && fh.Filename != "" {
					files = append(files, fh)
				}
			}
		}
	case tooLarge(err):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	case errors.Is(err, http.ErrNotMultipart):
		// Plain form posts carry text only.
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}

	description := c.PostForm("description")
	if len(files) == 0 && strings.TrimSpace(description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide an image or a description."})
		return
	}

	var saved []string
	defer func() {
		for _, p := range saved {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				h.logger.Warn().Err(err).Str("path", p).Msg("failed to remove upload")
			}
		}
	}()

	images := make([]llm.Image, 0, len(files))
	for _, fh := range files {
		path, img, err := h.stageUpload(c, fh)
		if path != "" {
			saved = append(saved, path)
		}
		if errors.Is(err, errNotImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s is not an image", fh.Filename)})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
			return
		}
		images = append(images, img)
	}

	language := strings.TrimSpace(c.PostForm("language"))
	if language == "" {
		language = analysis.DefaultLanguage
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), analysis.Request{
		Images:     images,
		UserText:   description,
		Language:   language,
		Conditions: c.PostForm("conditions"),
		PatientID:  c.PostForm("patient_id"),
		Mock:       strings.EqualFold(c.Query("mock"), "true"),
	})
	if errors.Is(err, analysis.ErrEmptyRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide an image or a description."})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// stageUpload writes fh under the upload directory with a random name,
// reads it back and checks it is an image. The returned path must be
// removed by the caller even when err is non-nil.
func (h *handlers) stageUpload(c *gin.Context, fh *multipart.FileHeader) (string, llm.Image, error) {
	if err := os.MkdirAll(h.uploadDir, 0o700); err != nil {
		return "", llm.Image{}, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(h.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return path, llm.Image{}, fmt.Errorf("save upload: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return path, llm.Image{}, fmt.Errorf("read upload: %w", err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return path, llm.Image{}, errNotImage
	}
	return path, llm.Image{MIMEType: mt.String(), Data: data}, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
