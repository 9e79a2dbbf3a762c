package screening

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-screener/internal/ai"
	"github.com/spigell/cv-screener/internal/utils"
)

var (
	separatorCellPattern = regexp.MustCompile(`^:?-{1,}:?$`)
	candidateRefPattern  = regexp.MustCompile(`(?i)candidate\s*#?\s*(\d+)`)
)

// Verdict is one candidate's binary assessment against one requirement.
type Verdict struct {
	Match       bool   `json:"match"`
	Explanation string `json:"explanation"`
}

// AssessmentRow pairs a requirement with a verdict per candidate, by index.
type AssessmentRow struct {
	Requirement string    `json:"requirement"`
	Verdicts    []Verdict `json:"verdicts"`
}

// AssessmentTable holds one row per requirement, in requirement order.
type AssessmentTable struct {
	Candidates []string        `json:"candidates"`
	Rows       []AssessmentRow `json:"rows"`
}

// CandidateCount returns the number of verdict/explanation column pairs.
func (t *AssessmentTable) CandidateCount() int {
	if t == nil {
		return 0
	}
	return len(t.Candidates)
}

// Markdown renders the table: requirement column first, then alternating
// verdict and explanation columns in candidate order.
func (t *AssessmentTable) Markdown() string {
	if t == nil {
		return ""
	}

	n := t.CandidateCount()
	var b strings.Builder
	b.WriteString(tableHeader(n))
	b.WriteString("\n|---|")
	for i := 0; i < n; i++ {
		b.WriteString("---|---|")
	}

	for _, row := range t.Rows {
		b.WriteString("\n| ")
		b.WriteString(escapeCell(row.Requirement))
		b.WriteString(" |")
		for _, v := range row.Verdicts {
			b.WriteString(" ")
			b.WriteString(verdictText(v.Match))
			b.WriteString(" | ")
			b.WriteString(escapeCell(v.Explanation))
			b.WriteString(" |")
		}
	}

	return b.String()
}

func tableHeader(n int) string {
	var b strings.Builder
	b.WriteString("| Requirement |")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, " Candidate %d verdict | Candidate %d explanation |", i, i)
	}
	return b.String()
}

func verdictText(match bool) string {
	if match {
		return "YES"
	}
	return "NO"
}

func escapeCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// Assessor scores all candidates of a block against a requirement list with a
// single inference request.
//
// Column attribution relies on the model reading the candidate markers; the
// assessor only verifies that the returned table has the expected shape and
// that its header names the candidates in index order.
type Assessor struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewAssessor(generator ai.Generator, logger *zap.Logger, maxLogLength int) *Assessor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assessor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Assessor) Assess(ctx context.Context, requirements *RequirementList, block *CandidateBlock) (*AssessmentTable, error) {
	if requirements.Len() == 0 {
		return nil, fmt.Errorf("%w: requirement list is empty", ErrInvalidRequirements)
	}
	for i, item := range requirements.Items {
		if strings.TrimSpace(item) == "" {
			return nil, fmt.Errorf("%w: requirement %d is blank", ErrInvalidRequirements, i)
		}
	}
	if block.Len() == 0 {
		return nil, ErrEmptyInput
	}

	prompt := buildAssessmentPrompt(requirements, block)

	a.logger.Debug("assessment request",
		zap.Int("requirements", requirements.Len()),
		zap.Int("candidates", block.Len()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssessment, err)
	}

	a.logger.Debug("assessment response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	table, err := parseAssessment(raw, requirements, block.Len())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAssessment, err)
	}
	table.Candidates = block.Labels()

	return table, nil
}

// parseAssessment reads the first markdown table of raw and checks it against
// the expected shape: 1+2n columns in every row and one row per requirement.
func parseAssessment(raw string, requirements *RequirementList, n int) (*AssessmentTable, error) {
	lines := firstTable(stripCodeFence(raw))
	if len(lines) < 2 {
		return nil, fmt.Errorf("response contains no markdown table")
	}

	columns := 1 + 2*n

	header := splitRow(lines[0])
	if len(header) != columns {
		return nil, fmt.Errorf("header has %d columns, expected %d for %d candidate(s)", len(header), columns, n)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	body := lines[1:]
	if isSeparator(splitRow(body[0])) {
		body = body[1:]
	}

	if len(body) != requirements.Len() {
		return nil, fmt.Errorf("table has %d rows, expected %d", len(body), requirements.Len())
	}

	table := &AssessmentTable{Rows: make([]AssessmentRow, 0, len(body))}
	for i, line := range body {
		cells := splitRow(line)
		if len(cells) != columns {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(cells), columns)
		}

		row := AssessmentRow{
			Requirement: requirements.Items[i],
			Verdicts:    make([]Verdict, 0, n),
		}
		for c := 0; c < n; c++ {
			match, err := parseVerdict(cells[1+2*c])
			if err != nil {
				return nil, fmt.Errorf("row %d, candidate %d: %w", i, c, err)
			}
			row.Verdicts = append(row.Verdicts, Verdict{
				Match:       match,
				Explanation: cells[2+2*c],
			})
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// checkHeader verifies that the verdict and explanation columns of candidate
// i both refer to candidate i.
func checkHeader(header []string) error {
	for col := 1; col < len(header); col++ {
		want := (col - 1) / 2
		m := candidateRefPattern.FindStringSubmatch(header[col])
		if m == nil {
			return fmt.Errorf("header column %d %q does not name a candidate", col, header[col])
		}
		got, err := strconv.Atoi(m[1])
		if err != nil || got != want {
			return fmt.Errorf("header column %d names candidate %s, expected candidate %d", col, m[1], want)
		}
	}
	return nil
}

func parseVerdict(cell string) (bool, error) {
	v := strings.ToUpper(strings.Trim(strings.TrimSpace(cell), "*_`."))
	switch v {
	case "YES", "Y", "TRUE", "MATCH", "✅":
		return true, nil
	case "NO", "N", "FALSE", "NO MATCH", "NO-MATCH", "❌":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized verdict %q", cell)
	}
}

func firstTable(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") {
			lines = append(lines, trimmed)
			continue
		}
		if len(lines) > 0 {
			break
		}
	}
	return lines
}

// splitRow splits a markdown table row on unescaped pipes.
func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = line[:len(line)-1]
	}

	var (
		cells   []string
		current strings.Builder
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch == '\\' && i+1 < len(line) && line[i+1] == '|' {
			current.WriteByte('|')
			i++
			continue
		}
		if ch == '|' {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteByte(ch)
	}
	cells = append(cells, strings.TrimSpace(current.String()))

	return cells
}

func isSeparator(cells []string) bool {
	for _, cell := range cells {
		if !separatorCellPattern.MatchString(strings.ReplaceAll(cell, " ", "")) {
			return false
		}
	}
	return len(cells) > 0
}
