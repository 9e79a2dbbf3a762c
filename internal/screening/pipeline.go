package screening

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/logger"
)

// Result holds both artifacts of a screening run.
type Result struct {
	Requirements *RequirementList `json:"requirements"`
	Assessment   *AssessmentTable `json:"assessment"`
}

// Markdown renders the result for display.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("## Job requirements\n\n")
	b.WriteString(r.Requirements.Markdown())
	b.WriteString("\n\n## Screening result\n\n")
	b.WriteString(r.Assessment.Markdown())

	if legend := r.Assessment.legend(); legend != "" {
		b.WriteString("\n\n")
		b.WriteString(legend)
	}

	b.WriteString("\n")
	return b.String()
}

func (t *AssessmentTable) legend() string {
	if t == nil {
		return ""
	}

	var lines []string
	for i, label := range t.Candidates {
		if label == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- Candidate %d: %s", i, label))
	}
	return strings.Join(lines, "\n")
}

type runIDKey struct{}

// WithRunID returns a context carrying the identifier Run logs with.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the identifier set by WithRunID, or an empty string.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Pipeline runs requirement extraction followed by the fan-in assessment.
// It keeps no state between runs and is safe for concurrent use.
type Pipeline struct {
	extractor *Extractor
	assessor  *Assessor
	logger    *zap.Logger
}

// NewPipeline wires both stages to the same generator handle.
func NewPipeline(generator ai.Generator, log *zap.Logger, maxLogLength int) *Pipeline {
	log = logger.WithFields(log)

	return &Pipeline{
		extractor: NewExtractor(generator, log.Named("extractor"), maxLogLength),
		assessor:  NewAssessor(generator, log.Named("assessor"), maxLogLength),
		logger:    log,
	}
}

// Run screens the candidates against the job description. Candidates keep their
// positional index throughout, so identical ordered inputs reference the same
// indices in the output.
func (p *Pipeline) Run(ctx context.Context, jobText string, candidates []Candidate) (*Result, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyInput
	}

	block, err := BuildCandidateBlock(candidates)
	if err != nil {
		return nil, err
	}

	id := RunID(ctx)
	if id == "" {
		id = uuid.NewString()
	}

	log := p.logger.With(logger.RunFields(id, block.Len())...)
	log.Info("screening started")

	requirements, err := p.extractor.Extract(ctx, jobText)
	if err != nil {
		log.Warn("screening failed", zap.String("stage", "extract"), zap.Error(err))
		return nil, err
	}

	table, err := p.assessor.Assess(ctx, requirements, block)
	if err != nil {
		log.Warn("screening failed", zap.String("stage", "assess"), zap.Error(err))
		return nil, err
	}

	log.Info("screening completed",
		zap.Int("requirements", requirements.Len()),
		zap.Int("rows", len(table.Rows)),
	)

	return &Result{Requirements: requirements, Assessment: table}, nil
}
