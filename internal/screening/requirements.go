package screening

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/utils"
)

const defaultMaxLogLength = 200

var listItemPattern = regexp.MustCompile(`^(?:[-*+•]|\d{1,3}[.)])\s+(.+)$`)

// RequirementList is the ordered list of requirements derived from one job
// description. Item order maps to assessment row order.
type RequirementList struct {
	Items []string `json:"items"`
}

// Len returns the number of requirements.
func (r *RequirementList) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

// Markdown renders the list as markdown bullets without headings.
func (r *RequirementList) Markdown() string {
	if r.Len() == 0 {
		return ""
	}

	var b strings.Builder
	for i, item := range r.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}

// Extractor derives a RequirementList from job description text.
type Extractor struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Extract issues one inference request for a non-blank job text and parses the
// markdown list it returns. Blank job text yields an empty list and no request.
func (e *Extractor) Extract(ctx context.Context, jobText string) (*RequirementList, error) {
	if strings.TrimSpace(jobText) == "" {
		e.logger.Warn("job description is empty, no requirements extracted")
		return &RequirementList{}, nil
	}

	prompt := buildRequirementsPrompt(jobText)

	e.logger.Debug("requirements request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	e.logger.Debug("requirements response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	items := parseRequirements(raw)
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: response contains no list items", ErrExtraction)
	}

	e.logger.Info("requirements extracted", zap.Int("count", len(items)))

	return &RequirementList{Items: items}, nil
}

// parseRequirements collects markdown list items in order. Indented lines that
// are not list items continue the previous item; headings and prose are dropped.
func parseRequirements(raw string) []string {
	var items []string
	for _, line := range strings.Split(stripCodeFence(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := listItemPattern.FindStringSubmatch(trimmed); m != nil {
			if item := cleanItem(m[1]); item != "" {
				items = append(items, item)
			}
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if indented && len(items) > 0 {
			items[len(items)-1] += " " + cleanItem(trimmed)
		}
	}

	return items
}

func cleanItem(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[ ] ")
	return strings.Join(strings.Fields(s), " ")
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	if idx := strings.Index(raw, "\n"); idx != -1 {
		raw = raw[idx+1:]
	} else {
		raw = strings.TrimLeft(raw, "`")
	}
	if idx := strings.LastIndex(raw, "```"); idx != -1 {
		raw = raw[:idx]
	}

	return strings.TrimSpace(raw)
}
