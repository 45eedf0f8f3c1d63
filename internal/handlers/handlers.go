package handlers

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/medscan-api/internal/metrics"
	"github.com/Brownie44l1/medscan-api/internal/model"
	"github.com/Brownie44l1/medscan-api/internal/prediction"
	"github.com/Brownie44l1/medscan-api/internal/preprocess"
	"github.com/Brownie44l1/medscan-api/internal/store"
	"github.com/Brownie44l1/medscan-api/internal/tensor"
	"github.com/Brownie44l1/medscan-api/internal/upload"
)

// Models runs inference and reports which models are available.
type Models interface {
	Predict(service string, input tensor.Tensor) (tensor.Tensor, error)
	Status() model.Status
}

// Records persists and fetches prediction records.
type Records interface {
	Save(ctx context.Context, rec *store.Record) error
	Get(ctx context.Context, id string, includeImage bool) (*store.Document, error)
}

type Options struct {
	UploadDir      string
	MaxUploadBytes int64
}

type Handler struct {
	models  Models
	records Records
	opts    Options
	logger  *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewHandler(models Models, records Records, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Handler{
		models:  models,
		records: records,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		newID:   newRecordID,
	}
}

func newRecordID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/models", h.ModelStatus)

	predictions := api.Group("/predictions")
	predictions.POST("/upload/mri", h.UploadMRI)
	predictions.POST("/upload/xray", h.UploadXRay)
	predictions.POST("/upload/x-ray", h.UploadXRay)
	predictions.GET("/result/:id", h.Result)
}

var errUploadTooLarge = errors.New("upload too large")

// PredictionResponse is returned by the upload endpoints.
type PredictionResponse struct {
	ID          string                       `json:"id"`
	Predictions map[string]prediction.Result `json:"predictions"`
	Confidence  float64                      `json:"confidence"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) ModelStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.models.Status())
}

func (h *Handler) UploadMRI(c *gin.Context) {
	h.handleUpload(c, prediction.MRI)
}

func (h *Handler) UploadXRay(c *gin.Context) {
	h.handleUpload(c, prediction.XRay)
}

func (h *Handler) handleUpload(c *gin.Context, service string) {
	if c.Request.ContentLength > h.opts.MaxUploadBytes {
		h.fail(c, service, http.StatusRequestEntityTooLarge, metrics.OutcomeBadInput,
			fmt.Sprintf("Upload exceeds %d bytes", h.opts.MaxUploadBytes), errUploadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, service, http.StatusRequestEntityTooLarge, metrics.OutcomeBadInput,
				fmt.Sprintf("Upload exceeds %d bytes", h.opts.MaxUploadBytes), err)
			return
		}
		h.fail(c, service, http.StatusBadRequest, metrics.OutcomeBadInput,
			"No image file provided. Use 'file' as the form field name", err)
		return
	}

	data, err := readUpload(header)
	if err != nil {
		h.fail(c, service, http.StatusBadRequest, metrics.OutcomeBadInput, "Failed to read uploaded file", err)
		return
	}
	metrics.RecordUpload(service, len(data))

	var userID *string
	if v := c.PostForm("userId"); v != "" {
		userID = &v
	}

	h.logger.Debug("received upload",
		zap.String("service", service),
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(data)))

	staged, err := upload.Stage(h.opts.UploadDir, header.Filename, data, h.logger)
	if err != nil {
		h.fail(c, service, http.StatusInternalServerError, metrics.OutcomeError, "Failed to stage upload", err)
		return
	}
	defer staged.Release()

	input, err := preprocess.LoadFile(staged.Path, service)
	if err != nil {
		if errors.Is(err, preprocess.ErrInvalidImage) {
			h.fail(c, service, http.StatusBadRequest, metrics.OutcomeBadInput, "Invalid image: "+err.Error(), err)
			return
		}
		h.fail(c, service, http.StatusInternalServerError, metrics.OutcomeError, "Failed to preprocess image", err)
		return
	}

	start := time.Now()
	output, err := h.models.Predict(service, input)
	metrics.RecordInference(service, time.Since(start))
	if err != nil {
		if errors.Is(err, model.ErrUnavailable) {
			h.fail(c, service, http.StatusServiceUnavailable, metrics.OutcomeUnavailable, err.Error(), err)
			return
		}
		h.fail(c, service, http.StatusInternalServerError, metrics.OutcomeError, "Prediction error: "+err.Error(), err)
		return
	}

	results := map[string]prediction.Result{
		service: prediction.Normalize(output, prediction.MappingFor(service)),
	}
	if results[service].Kind() == prediction.KindRaw {
		h.logger.Warn("model output could not be normalized",
			zap.String("service", service),
			zap.Int64s("shape", output.Shape))
	}
	confidence := prediction.Confidence(results)

	rec := &store.Record{
		ID:         h.newID(),
		UserID:     userID,
		ImageData:  staged.Data,
		Result:     results,
		Confidence: confidence,
		CreatedAt:  h.now().UTC(),
	}
	if err := h.records.Save(c.Request.Context(), rec); err != nil {
		h.fail(c, service, http.StatusInternalServerError, metrics.OutcomeError, "Failed to save prediction", err)
		return
	}

	metrics.RecordPrediction(service, metrics.OutcomeSuccess)
	metrics.RecordConfidence(service, confidence)
	h.logger.Info("prediction stored",
		zap.String("id", rec.ID),
		zap.String("service", service),
		zap.Float64("confidence", confidence))

	c.JSON(http.StatusOK, PredictionResponse{
		ID:          rec.ID,
		Predictions: results,
		Confidence:  confidence,
	})
}

func (h *Handler) Result(c *gin.Context) {
	id := c.Param("id")

	includeImage := false
	if v := c.Query("include_image"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "include_image must be a boolean"})
			return
		}
		includeImage = b
	}

	doc, err := h.records.Get(c.Request.Context(), id, includeImage)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Prediction id not found"})
			return
		}
		h.logger.Error("failed to fetch prediction", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch prediction"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) fail(c *gin.Context, service string, status int, outcome, detail string, err error) {
	metrics.RecordPrediction(service, outcome)

	fields := []zap.Field{zap.String("service", service), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		h.logger.Error("prediction failed", fields...)
	} else {
		h.logger.Warn("prediction rejected", fields...)
	}

	c.JSON(status, gin.H{"detail": detail})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
