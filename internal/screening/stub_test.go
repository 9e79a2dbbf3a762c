package screening

import (
	"context"
	"strings"
	"sync"
)

// stubGenerator answers requirement prompts and assessment prompts with fixed
// responses and records every prompt it receives.
type stubGenerator struct {
	mu sync.Mutex

	requirements    string
	requirementsErr error
	assessment      string
	assessmentErr   error

	prompts []string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)

	if isRequirementsPrompt(prompt) {
		return s.requirements, s.requirementsErr
	}
	return s.assessment, s.assessmentErr
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *stubGenerator) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

func isRequirementsPrompt(prompt string) bool {
	return strings.Contains(prompt, "##### JOB DESCRIPTION START #####")
}
