package extractor

import (
	"strings"
	"testing"
)

func TestRecoverRecipeDirect(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTitle string
	}{
		{
			name:      "clean json",
			raw:       `{"title": "Garlic Butter Pasta", "ingredients": [{"name": "pasta"}], "instructions": [{"stepNumber": 1, "description": "Boil the pasta"}]}`,
			wantTitle: "Garlic Butter Pasta",
		},
		{
			name:      "fenced json",
			raw:       "```json\n{\"title\": \"Shakshuka\", \"ingredients\": [{\"name\": \"eggs\"}], \"instructions\": [{\"stepNumber\": 1, \"description\": \"Simmer the sauce\"}]}\n```",
			wantTitle: "Shakshuka",
		},
		{
			name:      "fenced without language tag",
			raw:       "```\n{\"title\": \"Miso Soup\", \"ingredients\": [{\"name\": \"miso paste\"}], \"instructions\": []}\n```",
			wantTitle: "Miso Soup",
		},
		{
			name:      "string ingredients",
			raw:       `{"title": "Toast", "ingredients": ["2 slices bread", "butter"], "instructions": [{"stepNumber": 1, "description": "Toast the bread"}]}`,
			wantTitle: "Toast",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, err := RecoverRecipe(tt.raw)
			if err != nil {
				t.Fatalf("RecoverRecipe() error = %v", err)
			}
			if candidate.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", candidate.Title, tt.wantTitle)
			}
		})
	}
}

func TestRecoverRecipeStringIngredientForm(t *testing.T) {
	raw := `{"title": "Toast", "ingredients": ["2 slices bread"], "instructions": ["Toast it"]}`

	candidate, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() error = %v", err)
	}
	if got := candidate.Ingredients[0].Name; got != "2 slices bread" {
		t.Errorf("ingredient name = %q, want %q", got, "2 slices bread")
	}
	if got := candidate.Instructions[0].Description; got != "Toast it" {
		t.Errorf("instruction description = %q, want %q", got, "Toast it")
	}
}

func TestRecoverRecipeSurroundingProse(t *testing.T) {
	raw := `Sure! Here is the recipe you asked for:

{"title": "Pad Thai", "ingredients": [{"name": "rice noodles"}], "instructions": [{"stepNumber": 1, "description": "Soak the noodles"}]}

Let me know if you need anything else.`

	candidate, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() error = %v", err)
	}
	if candidate.Title != "Pad Thai" {
		t.Errorf("Title = %q, want %q", candidate.Title, "Pad Thai")
	}
}

func TestRecoverRecipeRepairs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "bare keys",
			raw:  `{title: "Ramen", ingredients: [{name: "noodles"}], instructions: [{stepNumber: 1, description: "Boil broth"}]}`,
		},
		{
			name: "single quotes",
			raw:  `{'title': 'Ramen', 'ingredients': [{'name': 'noodles'}], 'instructions': [{'stepNumber': 1, 'description': 'Boil broth'}]}`,
		},
		{
			name: "trailing commas",
			raw:  `{"title": "Ramen", "ingredients": [{"name": "noodles"},], "instructions": [{"stepNumber": 1, "description": "Boil broth"},],}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, err := RecoverRecipe(tt.raw)
			if err != nil {
				t.Fatalf("RecoverRecipe() error = %v", err)
			}
			if candidate.Title != "Ramen" {
				t.Errorf("Title = %q, want %q", candidate.Title, "Ramen")
			}
			if len(candidate.Ingredients) != 1 || candidate.Ingredients[0].Name != "noodles" {
				t.Errorf("Ingredients = %+v, want one entry named noodles", candidate.Ingredients)
			}
		})
	}
}

func TestRecoverRecipeFieldLevel(t *testing.T) {
	// Broken beyond syntactic repair: unterminated string in the middle
	raw := `{"title": "Beef Stew", "description": "hearty, "ingredients": [{"name": "beef chuck"}, {"name": "carrots"}], "instructions": [{"description": "Brown the beef"}]`

	candidate, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() error = %v", err)
	}
	if candidate.Title != "Beef Stew" {
		t.Errorf("Title = %q, want %q", candidate.Title, "Beef Stew")
	}
	if len(candidate.Ingredients) != 2 {
		t.Errorf("len(Ingredients) = %d, want 2", len(candidate.Ingredients))
	}
	if len(candidate.Instructions) != 1 {
		t.Errorf("len(Instructions) = %d, want 1", len(candidate.Instructions))
	}
}

func TestRecoverRecipePlainText(t *testing.T) {
	raw := `Title: Banana Bread

Ingredients:
- 3 ripe bananas
- 2 cups flour
- 1 cup sugar

Instructions:
1. Mash the bananas
2. Mix in dry ingredients
3. Bake at 350F for an hour`

	candidate, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() error = %v", err)
	}
	if candidate.Title != "Banana Bread" {
		t.Errorf("Title = %q, want %q", candidate.Title, "Banana Bread")
	}
	if len(candidate.Ingredients) != 3 {
		t.Errorf("len(Ingredients) = %d, want 3", len(candidate.Ingredients))
	}
	if len(candidate.Instructions) != 3 {
		t.Errorf("len(Instructions) = %d, want 3", len(candidate.Instructions))
	}
	if candidate.Partial {
		t.Error("Partial = true, want false when both lists recovered")
	}
}

func TestRecoverRecipePartialPlaceholder(t *testing.T) {
	raw := `Title: Mystery Dish

Ingredients:
- something green
- something crunchy`

	candidate, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() error = %v", err)
	}
	if !candidate.Partial {
		t.Error("Partial = false, want true when a list was placeholder-filled")
	}
	if len(candidate.Instructions) != 1 {
		t.Fatalf("len(Instructions) = %d, want 1 placeholder", len(candidate.Instructions))
	}
	if candidate.Instructions[0].Description != PlaceholderInstruction {
		t.Errorf("placeholder = %q, want %q", candidate.Instructions[0].Description, PlaceholderInstruction)
	}
}

func TestRecoverRecipeFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace", raw: "   \n\t  "},
		{name: "prose only", raw: "I could not find a recipe in this video, sorry."},
		{name: "json without recipe fields", raw: `{"error": "rate limited"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RecoverRecipe(tt.raw); err == nil {
				t.Error("RecoverRecipe() error = nil, want failure")
			}
		})
	}
}

func TestRecoverRecipeDeterministic(t *testing.T) {
	raw := `{title: 'Curry', ingredients: [{name: 'onion'},], instructions: [{description: 'Fry the onion'}]}`

	first, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() error = %v", err)
	}
	second, err := RecoverRecipe(raw)
	if err != nil {
		t.Fatalf("RecoverRecipe() second run error = %v", err)
	}
	if first.Title != second.Title || len(first.Ingredients) != len(second.Ingredients) {
		t.Error("repeated recovery produced different results")
	}
}

func TestRepairJSON(t *testing.T) {
	in := `{title: 'a "quoted" word', steps: [1, 2,], }`
	out := repairJSON(in)

	if strings.Contains(out, "'") {
		t.Errorf("repairJSON() left single quotes: %s", out)
	}
	if !strings.Contains(out, `"title":`) {
		t.Errorf("repairJSON() did not quote bare key: %s", out)
	}
	if strings.Contains(out, ",]") || strings.Contains(out, ", }") {
		t.Errorf("repairJSON() left trailing comma: %s", out)
	}
}
