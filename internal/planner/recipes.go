package planner

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Recipe is a named multi-step plan template. Recipes are matched against
// goal clauses before the lexical rules, so deployments can teach the
// planner domain phrases without code changes.
type Recipe struct {
	Name  string       `yaml:"name"`
	Match string       `yaml:"match"` // substring matched against the lowercased clause
	Steps []RecipeStep `yaml:"steps"`
}

// RecipeStep is one templated operation. Produces names the object the
// step creates; references to that name in later steps' parameters are
// rewritten if the name had to be deduplicated.
type RecipeStep struct {
	Operation   string         `yaml:"operation"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
	Produces    string         `yaml:"produces"`
}

type recipeFile struct {
	Recipes []Recipe `yaml:"recipes"`
}

// LoadRecipes reads plan templates from a YAML file.
func LoadRecipes(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipes: %w", err)
	}
	var f recipeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, r := range f.Recipes {
		if r.Match == "" {
			return nil, fmt.Errorf("recipe %q has no match phrase", r.Name)
		}
		if len(r.Steps) == 0 {
			return nil, fmt.Errorf("recipe %q has no steps", r.Name)
		}
		for _, s := range r.Steps {
			if s.Operation == "" {
				return nil, fmt.Errorf("recipe %q has a step without an operation", r.Name)
			}
		}
	}
	return f.Recipes, nil
}

// Matches reports whether the clause triggers this recipe.
func (r Recipe) Matches(clause string) bool {
	return strings.Contains(clause, strings.ToLower(r.Match))
}

// expand appends the recipe's steps to the builder, deduplicating produced
// object names against the document and earlier steps.
func (r Recipe) expand(b *builder) error {
	renamed := make(map[string]string)
	for _, rs := range r.Steps {
		params := make(map[string]any, len(rs.Parameters))
		for k, v := range rs.Parameters {
			if s, ok := v.(string); ok {
				if newName, was := renamed[s]; was {
					v = newName
				}
			}
			params[k] = v
		}

		desc := rs.Description
		if desc == "" {
			desc = fmt.Sprintf("%s (%s)", rs.Operation, r.Name)
		}
		b.add(rs.Operation, desc, params)

		if rs.Produces != "" {
			unique := b.uniqueName(rs.Produces)
			if unique != rs.Produces {
				renamed[rs.Produces] = unique
			}
			if name, ok := params["name"].(string); ok && name == rs.Produces {
				params["name"] = unique
			}
			b.produced(unique)
		}
	}
	return nil
}
