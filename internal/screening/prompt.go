package screening

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed prompts/requirements.md
var requirementsTemplate string

//go:embed prompts/assessment.md
var assessmentTemplate string

func buildRequirementsPrompt(jobText string) string {
	return strings.NewReplacer("{{JOB_TEXT}}", strings.TrimSpace(jobText)).Replace(requirementsTemplate)
}

// buildAssessmentPrompt renders the fan-in prompt. The replacer makes a single
// pass, so placeholders appearing inside candidate text are left untouched.
func buildAssessmentPrompt(requirements *RequirementList, block *CandidateBlock) string {
	n := block.Len()
	return strings.NewReplacer(
		"{{CANDIDATE_COUNT}}", strconv.Itoa(n),
		"{{COLUMN_COUNT}}", strconv.Itoa(1+2*n),
		"{{MARKER_EXAMPLE}}", block.StartMarker(0),
		"{{TABLE_HEADER}}", tableHeader(n),
		"{{REQUIREMENTS}}", requirements.Markdown(),
		"{{CANDIDATES}}", block.String(),
	).Replace(assessmentTemplate)
}
