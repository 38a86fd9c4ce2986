package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/amishk599/jobimport/internal/extract"
	"github.com/amishk599/jobimport/internal/model"
)

var _ Extractor = (*LLMExtractor)(nil)

// LLMExtractor implements Extractor using an LLM.
type LLMExtractor struct {
	provider  LLMProvider
	tmpl      *template.Template
	maxTokens int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewLLMExtractor creates an extractor. maxTokens bounds the page text and
// JSON-LD placed in the prompt (0 disables the bound); timeout bounds each provider
// call (0 leaves only the caller's deadline).
func NewLLMExtractor(provider LLMProvider, tmpl *template.Template, maxTokens int, timeout time.Duration, logger *slog.Logger) *LLMExtractor {
	return &LLMExtractor{
		provider:  provider,
		tmpl:      tmpl,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

// Extract asks the LLM for the posting's fields. Provider errors, output
// that is not JSON, a model-reported error and a missing title all come
// back as a failed result.
func (a *LLMExtractor) Extract(ctx context.Context, page string) model.ExtractionResult {
	text := extract.PageText(page)
	ld := extract.JobPostingJSON(page)
	if text == "" && ld == "" {
		return model.ExtractionFailed("page has no text")
	}
	if a.maxTokens > 0 && ld != "" {
		// JSON-LD gets at most half the budget; the text keeps the rest.
		ld = truncateTokens(ld, a.maxTokens/2)
		text = truncateTokens(text, a.maxTokens-a.maxTokens/2)
	} else {
		text = truncateTokens(text, a.maxTokens)
	}

	var promptBuf bytes.Buffer
	if err := a.tmpl.Execute(&promptBuf, promptData{Text: text, StructuredData: ld}); err != nil {
		return model.ExtractionFailed(fmt.Sprintf("render prompt: %v", err))
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.ExtractionFailed(fmt.Sprintf("llm complete: %v", err))
	}
	if a.logger != nil {
		a.logger.Debug("llm extraction complete", "duration", time.Since(start), "response_bytes", len(raw))
	}

	fields, err := parseExtraction(raw)
	if err != nil {
		return model.ExtractionFailed(err.Error())
	}
	return model.Extracted(fields)
}

// promptData is what the extraction template renders. StructuredData is
// the page's JobPosting JSON-LD, empty when the page has none.
type promptData struct {
	Text           string
	StructuredData string
}

// rawExtraction is the JSON shape returned by the LLM (matches extractionSchema).
type rawExtraction struct {
	Title            string     `json:"title"`
	Company          string     `json:"company"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	Salary           string     `json:"salary"`
	EmploymentType   string     `json:"employmentType"`
	Type             string     `json:"type"`
	TechStack        []string   `json:"techStack"`
	RequiredSkills   []rawSkill `json:"requiredSkills"`
	Requirements     []string   `json:"requirements"`
	Responsibilities []string   `json:"responsibilities"`
	Benefits         []string   `json:"benefits"`
	Error            string     `json:"error"`
}

type rawSkill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// parseExtraction decodes the LLM response. Gemini sometimes wraps the
// object in a markdown fence even in JSON mode, so only the outermost
// {...} span is decoded.
func parseExtraction(raw string) (model.ExtractedFields, error) {
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return model.ExtractedFields{}, fmt.Errorf("llm response has no JSON object")
	}

	var re rawExtraction
	if err := json.Unmarshal([]byte(raw[start:end+1]), &re); err != nil {
		return model.ExtractedFields{}, fmt.Errorf("unmarshal extraction JSON: %w", err)
	}
	if re.Error != "" {
		return model.ExtractedFields{}, fmt.Errorf("model reported: %s", re.Error)
	}
	if strings.TrimSpace(re.Title) == "" {
		return model.ExtractedFields{}, fmt.Errorf("llm returned no title")
	}

	f := model.ExtractedFields{
		Title:            strings.TrimSpace(re.Title),
		Company:          strings.TrimSpace(re.Company),
		Description:      strings.TrimSpace(re.Description),
		Location:         strings.TrimSpace(re.Location),
		Salary:           strings.TrimSpace(re.Salary),
		EmploymentType:   strings.TrimSpace(re.EmploymentType),
		Type:             re.Type,
		TechStack:        trimAll(re.TechStack),
		Requirements:     trimAll(re.Requirements),
		Responsibilities: trimAll(re.Responsibilities),
		Benefits:         trimAll(re.Benefits),
	}
	for _, s := range re.RequiredSkills {
		f.RequiredSkills.Set(s.Name, s.Level)
	}
	// Models often list skills only under techStack.
	if f.RequiredSkills.Len() == 0 {
		f.RequiredSkills = model.NewSkillLevels(model.DefaultSkillLevel, f.TechStack...)
	}
	return f, nil
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
