package ai

import (
	"context"

	"github.com/amishk599/jobimport/internal/model"
)

// Extractor turns a fetched job page into fields. It reports failure in the
// result instead of an error so callers can branch to heuristic extraction.
type Extractor interface {
	Extract(ctx context.Context, page string) model.ExtractionResult
}

// LLMProvider sends a prompt to an LLM and returns the raw text response.
// Used only by LLMExtractor; not exported to the rest of the system.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const systemPrompt = "You are a precise structured data extractor for job postings. Respond with a single JSON object."

// extractionSchema is the JSON Schema the model output must follow. It
// matches rawExtraction field for field.
var extractionSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"title":          map[string]any{"type": "string"},
		"company":        map[string]any{"type": "string"},
		"description":    map[string]any{"type": "string"},
		"location":       map[string]any{"type": "string"},
		"salary":         map[string]any{"type": "string"},
		"employmentType": map[string]any{"type": "string"},
		"type": map[string]any{
			"type": "string",
			"enum": []string{"external", "internal", "project"},
		},
		"techStack": stringArray,
		"requiredSkills": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"name":  map[string]any{"type": "string"},
					"level": map[string]any{"type": "integer"},
				},
				"required": []string{"name", "level"},
			},
		},
		"requirements":     stringArray,
		"responsibilities": stringArray,
		"benefits":         stringArray,
		"error":            map[string]any{"type": "string"},
	},
	"required": []string{
		"title", "company", "description", "location", "salary", "employmentType", "type",
		"techStack", "requiredSkills", "requirements", "responsibilities", "benefits", "error",
	},
}

var stringArray = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}
