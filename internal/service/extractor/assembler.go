package extractor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelchef/internal/domain"
)

const syntheticAnnotation = "This recipe was automatically generated because the original content could not be fully analyzed. Please review and edit as needed."

// Assemble converts the AI stage envelope into a persistable Recipe. It is
// total: a failure envelope yields a synthetic fallback recipe, never an
// error. IsSynthetic is decided here and nowhere else.
func Assemble(sourceURL string, match domain.PlatformMatch, envelope domain.AIEnvelope, scrapedTitle, thumbnailPath string) *domain.Recipe {
	recipe := &domain.Recipe{
		ID:            uuid.New(),
		SourceURL:     sourceURL,
		SourceType:    match.Platform,
		ThumbnailPath: thumbnailPath,
		CreatedAt:     time.Now().UTC(),
	}

	if envelope.Succeeded() {
		fillFromCandidate(recipe, envelope.Data)
	} else {
		fillSynthetic(recipe, match, envelope.Failure, scrapedTitle)
	}

	normalizeLists(recipe)
	return recipe
}

func fillFromCandidate(recipe *domain.Recipe, candidate *domain.RecipeCandidate) {
	recipe.Title = strings.TrimSpace(candidate.Title)
	if recipe.Title == "" {
		recipe.Title = "Untitled Recipe"
	}
	recipe.Description = strings.TrimSpace(candidate.Description)

	recipe.PrepTimeMinutes = coerceMinutes(candidate.PrepTime)
	recipe.CookTimeMinutes = coerceMinutes(candidate.CookTime)
	recipe.ServingSize = coercePositiveInt(candidate.ServingSize)

	if difficulty := strings.ToLower(strings.TrimSpace(candidate.Difficulty)); domain.IsValidDifficulty(difficulty) {
		recipe.Difficulty = &difficulty
	}

	for _, tag := range candidate.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}

	for _, ing := range candidate.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		recipe.Ingredients = append(recipe.Ingredients, domain.Ingredient{
			Name:     name,
			Quantity: coerceQuantity(ing.Quantity),
			Unit:     optionalString(ing.Unit),
			Notes:    optionalString(ing.Notes),
		})
	}

	for _, step := range candidate.Instructions {
		description := strings.TrimSpace(step.Description)
		if description == "" {
			continue
		}
		recipe.Instructions = append(recipe.Instructions, domain.InstructionStep{
			Description: description,
		})
	}

	if candidate.Partial {
		recipe.IsSynthetic = true
		recipe.Description = appendAnnotation(recipe.Description)
	}
}

// fillSynthetic builds the fallback recipe used when the AI stage produced
// nothing usable. When the failure was a parse problem the scraped title is
// trusted enough to headline the recipe; for provider outages it is not.
func fillSynthetic(recipe *domain.Recipe, match domain.PlatformMatch, failure *domain.AIFailure, scrapedTitle string) {
	recipe.IsSynthetic = true

	platformName := match.Platform
	if cfg, ok := domain.GetPlatformConfig().Platforms[match.Platform]; ok {
		platformName = cfg.Name
	}

	title := fmt.Sprintf("Recipe from %s", platformName)
	if failure != nil && failure.Kind == domain.FailureKindJSONRecovery && strings.TrimSpace(scrapedTitle) != "" {
		title = strings.TrimSpace(scrapedTitle)
	}
	recipe.Title = title

	recipe.Description = appendAnnotation(fmt.Sprintf("Saved from %s.", platformName))
	recipe.Tags = []string{strings.ToLower(platformName)}

	recipe.Ingredients = []domain.Ingredient{
		{Name: PlaceholderIngredient},
		{Name: "Add the remaining ingredients from the video"},
	}
	recipe.Instructions = []domain.InstructionStep{
		{Description: fmt.Sprintf("Watch the original video at %s and fill in the steps.", recipe.SourceURL)},
		{Description: PlaceholderInstruction},
	}
}

// normalizeLists enforces the dense 1..N numbering invariant and guarantees
// both lists are non-empty
func normalizeLists(recipe *domain.Recipe) {
	if len(recipe.Ingredients) == 0 {
		recipe.Ingredients = []domain.Ingredient{{Name: PlaceholderIngredient}}
		recipe.IsSynthetic = true
	}
	if len(recipe.Instructions) == 0 {
		recipe.Instructions = []domain.InstructionStep{{Description: PlaceholderInstruction}}
		recipe.IsSynthetic = true
	}

	for i := range recipe.Ingredients {
		recipe.Ingredients[i].OrderIndex = i + 1
	}
	for i := range recipe.Instructions {
		recipe.Instructions[i].StepNumber = i + 1
	}
}

func appendAnnotation(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return syntheticAnnotation
	}
	if strings.Contains(description, syntheticAnnotation) {
		return description
	}
	return description + "\n\n" + syntheticAnnotation
}

var leadingNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// coerceMinutes accepts the time shapes models actually emit: numbers,
// numeric strings, and strings like "30 minutes" or "1.5 hours"
func coerceMinutes(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return positiveIntPtr(int(math.Round(t)))
	case int:
		return positiveIntPtr(t)
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return nil
		}
		numStr := leadingNumberRe.FindString(s)
		if numStr == "" {
			return nil
		}
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil
		}
		if strings.Contains(s, "hour") || strings.Contains(s, "hr") {
			num *= 60
		}
		return positiveIntPtr(int(math.Round(num)))
	}
	return nil
}

func coercePositiveInt(v any) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return positiveIntPtr(int(math.Round(t)))
	case int:
		return positiveIntPtr(t)
	case string:
		numStr := leadingNumberRe.FindString(t)
		if numStr == "" {
			return nil
		}
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return nil
		}
		return positiveIntPtr(int(math.Round(num)))
	}
	return nil
}

func positiveIntPtr(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// coerceQuantity renders a quantity as text, preserving whatever form the
// model used ("2", "1/2", 0.5)
func coerceQuantity(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return optionalString(t)
	case float64:
		var s string
		if t == math.Trunc(t) {
			s = strconv.Itoa(int(t))
		} else {
			s = strconv.FormatFloat(t, 'f', -1, 64)
		}
		return &s
	case int:
		s := strconv.Itoa(t)
		return &s
	}
	s := fmt.Sprintf("%v", v)
	return optionalString(s)
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}
