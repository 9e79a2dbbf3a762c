// Package server exposes the screening pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/documents"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
)

const (
	defaultMaxUploadSize = 10 << 20
	requestIDHeader      = "X-Request-ID"
)

// Screener runs one screening. *screening.Pipeline satisfies it.
type Screener interface {
	Run(ctx context.Context, jobText string, candidates []screening.Candidate) (*screening.Result, error)
}

type Config struct {
	// MaxUploadSize limits the whole request body in bytes.
	MaxUploadSize int64
	// Timeout bounds a single screening, both inference calls included.
	Timeout time.Duration
}

// ScreeningResponse is the JSON body of a successful screening.
type ScreeningResponse struct {
	RunID                string                     `json:"run_id"`
	Candidates           []string                   `json:"candidates"`
	Requirements         []string                   `json:"requirements"`
	RequirementsMarkdown string                     `json:"requirements_markdown"`
	Assessment           *screening.AssessmentTable `json:"assessment"`
	AssessmentMarkdown   string                     `json:"assessment_markdown"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	RunID string `json:"run_id,omitempty"`
}

type handler struct {
	screener Screener
	timeout  time.Duration
	logger   *zap.Logger
}

// New builds the fiber application with all routes registered.
func New(screener Screener, cfg Config, log *zap.Logger) *fiber.App {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = defaultMaxUploadSize
	}

	app := fiber.New(fiber.Config{
		AppName:               "cv-screener",
		BodyLimit:             int(cfg.MaxUploadSize),
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestID)

	h := &handler{screener: screener, timeout: cfg.Timeout, logger: log}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	api.Post("/screenings", h.screen)

	return app
}

func requestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(requestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(requestIDHeader, id)
	c.Set(requestIDHeader, id)
	return c.Next()
}

func runID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDHeader).(string)
	return id
}

func (h *handler) screen(c *fiber.Ctx) error {
	id := runID(c)
	log := h.logger.With(zap.String(logger.FieldRequestID, id))

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse multipart form")
	}

	ctx := screening.WithRunID(c.UserContext(), id)
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	candidates, err := collectCandidates(ctx, form)
	if err != nil {
		return err
	}

	log.Info("screening request", zap.Int("candidates", len(candidates)))

	result, err := h.screener.Run(ctx, firstValue(form, "job_text"), candidates)
	if err != nil {
		return err
	}

	labels := result.Assessment.Candidates
	return c.JSON(ScreeningResponse{
		RunID:                id,
		Candidates:           labels,
		Requirements:         result.Requirements.Items,
		RequirementsMarkdown: result.Requirements.Markdown(),
		Assessment:           result.Assessment,
		AssessmentMarkdown:   result.Assessment.Markdown(),
	})
}

// collectCandidates returns pasted CV texts first, then uploaded files, each
// group in submission order.
func collectCandidates(ctx context.Context, form *multipart.Form) ([]screening.Candidate, error) {
	var candidates []screening.Candidate

	for i, text := range form.Value["cv_text"] {
		if strings.TrimSpace(text) == "" {
			continue
		}
		candidates = append(candidates, screening.Candidate{
			Label: fmt.Sprintf("pasted CV %d", i+1),
			Text:  text,
		})
	}

	for _, fh := range form.File["files"] {
		text, err := readUpload(ctx, fh)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, screening.Candidate{Label: fh.Filename, Text: text})
	}

	return candidates, nil
}

func readUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("reading upload %q: %w", fh.Filename, err)
	}

	return documents.Extract(ctx, fh.Filename, fh.Header.Get("Content-Type"), data)
}

func firstValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// statusFor maps pipeline and document errors to HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, screening.ErrEmptyInput),
		errors.Is(err, screening.ErrInvalidRequirements):
		return fiber.StatusBadRequest
	case errors.Is(err, documents.ErrUnsupported),
		errors.Is(err, documents.ErrNoText):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, screening.ErrExtraction),
		errors.Is(err, screening.ErrAssessment):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)

		fields := []zap.Field{
			zap.String(logger.FieldRequestID, runID(c)),
			zap.Int("status", code),
			zap.Error(err),
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", fields...)
		} else {
			log.Warn("request rejected", fields...)
		}

		return c.Status(code).JSON(errorResponse{
			Error: err.Error(),
			Code:  code,
			RunID: runID(c),
		})
	}
}
