package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidURL is returned when a URL matches no supported platform pattern.
// It is the only pipeline failure surfaced to the caller as a hard error;
// everything else degrades through a fallback.
var ErrInvalidURL = errors.New("url does not match any supported platform")

// ErrNotFound is returned by repositories when a record does not exist
var ErrNotFound = errors.New("record not found")

// ExtractionRequest is the immutable input to the pipeline
type ExtractionRequest struct {
	URL              string `json:"url"`
	DeclaredPlatform string `json:"platform,omitempty"`
	RequesterID      int64  `json:"requester_id"`
}

// PlatformMatch is the result of platform resolution: stateless, recomputed
// per request
type PlatformMatch struct {
	Platform     string `json:"platform"`
	ContentID    string `json:"content_id"`
	AuthorHandle string `json:"author_handle,omitempty"`
}

// ScreenshotCandidate is one captured video frame considered for the thumbnail
type ScreenshotCandidate struct {
	Path             string  `json:"path"`
	TimestampSeconds float64 `json:"timestamp_seconds"`
}

// AcquiredContent is the richest textual description of a post the acquirer
// could gather, plus any thumbnail material found along the way. It lives only
// for the duration of one extraction.
type AcquiredContent struct {
	Text                 string                `json:"text"`
	Title                string                `json:"title,omitempty"`
	ThumbnailURL         string                `json:"thumbnail_url,omitempty"`
	ThumbnailLocalPath   string                `json:"thumbnail_local_path,omitempty"`
	ScreenshotCandidates []ScreenshotCandidate `json:"screenshot_candidates,omitempty"`
}

// Failure kinds distinguish which pipeline layer failed so downstream fallback
// decisions can tell "nothing was acquired" from "the AI output was garbage"
const (
	FailureKindAcquisition  = "acquisition"
	FailureKindProvider     = "provider"
	FailureKindJSONRecovery = "json_recovery"
)

// AIFailure describes why the extraction gateway produced no structured data
type AIFailure struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// AIEnvelope is the tagged result of the AI extraction stage: exactly one of
// Data or Failure is set
type AIEnvelope struct {
	Data    *RecipeCandidate `json:"data,omitempty"`
	Failure *AIFailure       `json:"failure,omitempty"`
}

// Succeeded reports whether the envelope carries structured data
func (e AIEnvelope) Succeeded() bool {
	return e.Data != nil
}

// SuccessEnvelope wraps a recovered candidate
func SuccessEnvelope(data *RecipeCandidate) AIEnvelope {
	return AIEnvelope{Data: data}
}

// FailureEnvelope wraps a failure kind and detail
func FailureEnvelope(kind, detail string) AIEnvelope {
	return AIEnvelope{Failure: &AIFailure{Kind: kind, Detail: detail}}
}

// RecipeCandidate is the loosely-typed recipe shape recovered from AI output.
// Numeric fields are `any` because models return numbers, numeric strings, and
// prose interchangeably; the assembler owns coercion.
type RecipeCandidate struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	PrepTime     any                    `json:"prepTime"`
	CookTime     any                    `json:"cookTime"`
	ServingSize  any                    `json:"servingSize"`
	Difficulty   string                 `json:"difficulty"`
	Ingredients  []CandidateIngredient  `json:"ingredients"`
	Instructions []CandidateInstruction `json:"instructions"`
	Tags         StringList             `json:"tags"`

	// Partial marks a candidate rebuilt by field-level recovery where one of
	// the two lists had to be filled with a placeholder entry
	Partial bool `json:"-"`
}

// CandidateIngredient mirrors Ingredient but tolerates sloppy AI typing
type CandidateIngredient struct {
	Name     string `json:"name"`
	Quantity any    `json:"quantity"`
	Unit     string `json:"unit"`
	Notes    string `json:"notes"`
}

// CandidateInstruction mirrors InstructionStep but tolerates sloppy AI typing
type CandidateInstruction struct {
	StepNumber  any    `json:"stepNumber"`
	Description string `json:"description"`
}

// UnmarshalJSON accepts both object form and the bare-string form models
// frequently emit ("2 cups flour" instead of {"name": ...})
func (i *CandidateIngredient) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		i.Name = strings.TrimSpace(asString)
		return nil
	}

	type plain CandidateIngredient
	var asObject plain
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("ingredient is neither string nor object: %w", err)
	}
	*i = CandidateIngredient(asObject)
	return nil
}

// UnmarshalJSON accepts both object form and bare-string steps
func (s *CandidateInstruction) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		s.Description = strings.TrimSpace(asString)
		return nil
	}

	type plain CandidateInstruction
	var asObject plain
	if err := json.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("instruction is neither string nor object: %w", err)
	}
	*s = CandidateInstruction(asObject)
	return nil
}

// StringList tolerates models returning either a JSON array or a single
// comma-separated string
type StringList []string

// UnmarshalJSON implements the tolerant decoding for StringList
func (l *StringList) UnmarshalJSON(data []byte) error {
	var asSlice []string
	if err := json.Unmarshal(data, &asSlice); err == nil {
		*l = asSlice
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("tags are neither array nor string")
	}

	parts := strings.Split(asString, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	*l = result
	return nil
}
