package screening

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Candidate is one candidate document. Its index is its position in the
// slice handed to the pipeline.
type Candidate struct {
	// Label names the source of the text, e.g. a file name. Optional.
	Label string
	Text  string
}

// CandidateBlock is the marker-delimited concatenation of all candidate texts
// submitted in one run.
//
// Markers carry the candidate index and a tag derived from the content of all
// candidates. A candidate's own text cannot contain its block's markers
// without containing the hash of itself, so markers never collide with
// content, and identical inputs always produce an identical block.
type CandidateBlock struct {
	text   string
	tag    string
	labels []string
}

// BuildCandidateBlock wraps every candidate text with its start and end
// markers and concatenates them in input order.
func BuildCandidateBlock(candidates []Candidate) (*CandidateBlock, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyInput
	}

	texts := make([]string, len(candidates))
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: candidate %d has no text", ErrEmptyInput, i)
		}
		texts[i] = text
		labels[i] = strings.TrimSpace(c.Label)
	}

	block := &CandidateBlock{tag: contentTag(texts), labels: labels}

	var b strings.Builder
	for i, text := range texts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.StartMarker(i))
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
		b.WriteString(block.EndMarker(i))
	}
	block.text = b.String()

	return block, nil
}

// Len returns the number of candidates in the block.
func (b *CandidateBlock) Len() int {
	if b == nil {
		return 0
	}
	return len(b.labels)
}

// Labels returns the candidate labels by index. Empty when not supplied.
func (b *CandidateBlock) Labels() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.labels...)
}

func (b *CandidateBlock) String() string {
	if b == nil {
		return ""
	}
	return b.text
}

// StartMarker returns the line opening candidate i's text.
func (b *CandidateBlock) StartMarker(i int) string {
	return "##### CANDIDATE " + strconv.Itoa(i) + " CV START [" + b.tag + "] #####"
}

// EndMarker returns the line closing candidate i's text.
func (b *CandidateBlock) EndMarker(i int) string {
	return "##### CANDIDATE " + strconv.Itoa(i) + " CV END [" + b.tag + "] #####"
}

func contentTag(texts []string) string {
	h := sha256.New()
	for _, text := range texts {
		h.Write([]byte(strconv.Itoa(len(text))))
		h.Write([]byte{0})
		h.Write([]byte(text))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
