package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"reelchef/internal/domain"
)

// Placeholder entries inserted when field-level recovery could only rebuild
// one of the two lists. Surfaced to users as content to correct.
const (
	PlaceholderIngredient  = "Ingredient could not be extracted - please edit"
	PlaceholderInstruction = "Step could not be extracted - please edit this recipe"
)

// recoveryStrategy converts raw model output to a structured candidate.
// Strategies are attempted in strict order with early exit on first success,
// so each one only has to handle the failure modes the previous ones missed.
type recoveryStrategy struct {
	name string
	fn   func(raw string) (*domain.RecipeCandidate, error)
}

var recoveryStrategies = []recoveryStrategy{
	{name: "direct", fn: parseDirect},
	{name: "outer_block", fn: parseOuterBlock},
	{name: "brace_slice", fn: parseBraceSlice},
	{name: "repaired", fn: parseRepaired},
	{name: "field_regex", fn: recoverFields},
}

// RecoverRecipe runs the recovery pipeline over raw model output. It is a
// pure function: same input, same output, no I/O.
func RecoverRecipe(raw string) (*domain.RecipeCandidate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("model output was empty")
	}

	var errs []error
	for _, strategy := range recoveryStrategies {
		candidate, err := strategy.fn(raw)
		if err == nil {
			return candidate, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", strategy.name, err))
	}

	return nil, fmt.Errorf("all recovery strategies failed: %w", errors.Join(errs...))
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// stripCodeFences unwraps a fenced block if the whole payload is fenced,
// otherwise removes stray fence markers
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if groups := codeFenceRe.FindStringSubmatch(trimmed); groups != nil {
		return strings.TrimSpace(groups[1])
	}
	return strings.TrimSpace(strings.ReplaceAll(trimmed, "```", ""))
}

// parseDirect strips code fences and parses the payload as-is
func parseDirect(raw string) (*domain.RecipeCandidate, error) {
	return parseCandidate(stripCodeFences(raw))
}

var outerBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseOuterBlock regex-extracts the outermost {...} block and parses that
func parseOuterBlock(raw string) (*domain.RecipeCandidate, error) {
	block := outerBlockRe.FindString(raw)
	if block == "" {
		return nil, fmt.Errorf("no JSON object found")
	}
	return parseCandidate(block)
}

// parseBraceSlice slices from the first '{' to the last '}' and parses that
func parseBraceSlice(raw string) (*domain.RecipeCandidate, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no balanced braces found")
	}
	return parseCandidate(raw[start : end+1])
}

var (
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	singleQuotedRe  = regexp.MustCompile(`'((?:[^'\\]|\\.)*)'`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// repairJSON applies a small set of deterministic syntax repairs: quote bare
// keys, convert single-quoted strings to double-quoted, strip trailing commas
func repairJSON(block string) string {
	block = bareKeyRe.ReplaceAllString(block, `$1"$2":`)
	block = singleQuotedRe.ReplaceAllStringFunc(block, func(match string) string {
		inner := match[1 : len(match)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		return `"` + inner + `"`
	})
	block = trailingCommaRe.ReplaceAllString(block, `$1`)
	return block
}

// parseRepaired applies the syntax repairs to the brace slice and retries
func parseRepaired(raw string) (*domain.RecipeCandidate, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no balanced braces found")
	}
	return parseCandidate(repairJSON(raw[start : end+1]))
}

// parseCandidate unmarshals and validates a candidate JSON payload
func parseCandidate(payload string) (*domain.RecipeCandidate, error) {
	var candidate domain.RecipeCandidate
	if err := json.Unmarshal([]byte(payload), &candidate); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if !hasRecipeShape(&candidate) {
		return nil, fmt.Errorf("JSON parsed but contains no recipe fields")
	}
	return &candidate, nil
}

// hasRecipeShape checks the payload carries at least one of title,
// ingredients, or instructions
func hasRecipeShape(candidate *domain.RecipeCandidate) bool {
	return strings.TrimSpace(candidate.Title) != "" ||
		len(candidate.Ingredients) > 0 ||
		len(candidate.Instructions) > 0
}

var (
	jsonTitleRe     = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	plainTitleRe    = regexp.MustCompile(`(?im)^\s*(?:#+\s*)?title\s*[:\-]\s*(.+)$`)
	quotedStringRe  = regexp.MustCompile(`"((?:[^"\\]|\\.)+)"`)
	nameFieldRe     = regexp.MustCompile(`"name"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	descFieldRe     = regexp.MustCompile(`"description"\s*:\s*"((?:[^"\\]|\\.)+)"`)
	bulletLineRe    = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*(.+)$`)
	ingredientsHdr  = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?ingredients\b`)
	instructionsHdr = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?(?:instructions|steps|directions|method)\b`)
)

// recoverFields pulls title, ingredients and instructions out independently
// via targeted patterns, accepting partial results. It succeeds when a title
// plus at least one of the two lists is recovered; a missing list becomes a
// single placeholder entry flagged for user correction.
func recoverFields(raw string) (*domain.RecipeCandidate, error) {
	title := extractTitle(raw)
	if title == "" {
		return nil, fmt.Errorf("no title recoverable")
	}

	ingredients := extractListItems(raw, "ingredients", ingredientsHdr, nameFieldRe)
	instructions := extractListItems(raw, "instructions", instructionsHdr, descFieldRe)

	if len(ingredients) == 0 && len(instructions) == 0 {
		return nil, fmt.Errorf("title found but neither list recoverable")
	}

	candidate := &domain.RecipeCandidate{Title: title}

	if len(ingredients) == 0 {
		ingredients = []string{PlaceholderIngredient}
		candidate.Partial = true
	}
	if len(instructions) == 0 {
		instructions = []string{PlaceholderInstruction}
		candidate.Partial = true
	}

	for _, name := range ingredients {
		candidate.Ingredients = append(candidate.Ingredients, domain.CandidateIngredient{Name: name})
	}
	for _, description := range instructions {
		candidate.Instructions = append(candidate.Instructions, domain.CandidateInstruction{Description: description})
	}

	return candidate, nil
}

// extractTitle tries JSON-style then plain-text title patterns
func extractTitle(raw string) string {
	if groups := jsonTitleRe.FindStringSubmatch(raw); groups != nil {
		return unescapeJSONString(groups[1])
	}
	if groups := plainTitleRe.FindStringSubmatch(raw); groups != nil {
		return strings.TrimSpace(groups[1])
	}
	return ""
}

// extractListItems recovers a named array: first as a JSON array block
// (object entries via the field pattern, else quoted strings), then as a
// plain-text bulleted section under a matching header
func extractListItems(raw, arrayName string, header *regexp.Regexp, fieldPattern *regexp.Regexp) []string {
	arrayRe := regexp.MustCompile(`(?is)"` + arrayName + `"\s*:\s*\[(.*?)\]`)
	if groups := arrayRe.FindStringSubmatch(raw); groups != nil {
		block := groups[1]

		var items []string
		for _, match := range fieldPattern.FindAllStringSubmatch(block, -1) {
			items = append(items, unescapeJSONString(match[1]))
		}
		if len(items) > 0 {
			return items
		}

		// Array of plain strings
		if !strings.Contains(block, "{") {
			for _, match := range quotedStringRe.FindAllStringSubmatch(block, -1) {
				items = append(items, unescapeJSONString(match[1]))
			}
		}
		if len(items) > 0 {
			return items
		}
	}

	// Plain-text section: bullet or numbered lines following the header
	var items []string
	inSection := false
	for _, line := range strings.Split(raw, "\n") {
		if header.MatchString(line) {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if groups := bulletLineRe.FindStringSubmatch(line); groups != nil {
			items = append(items, strings.TrimSpace(groups[1]))
			continue
		}
		// A non-bullet, non-empty line ends the section
		if strings.TrimSpace(line) != "" && len(items) > 0 {
			break
		}
		if strings.TrimSpace(line) != "" && len(items) == 0 {
			// Header followed by prose; keep scanning for the first bullet
			if ingredientsHdr.MatchString(line) || instructionsHdr.MatchString(line) {
				break
			}
		}
	}

	return items
}

func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
