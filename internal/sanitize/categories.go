// Package sanitize implements the Appearance Sanitizer: a pure local text
// transformation with no LLM call. The curated token list is a fixed YAML
// resource bundled with the binary and reviewed centrally, replacing the
// ad hoc, inconsistently-cased lists the source scattered across two code
// paths.
package sanitize

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var categoriesYAML []byte

type categoryResource struct {
	Categories        map[string][]string `yaml:"categories"`
	PreservedPrefixes []string            `yaml:"preserved_prefixes"`
}

// categories groups the tokens the sanitizer strips from an enhanced scene
// prompt before it reaches the video model: facial features, hair
// attributes, ethnicity markers, body descriptors, age phrases, and
// explicit measurements of persons.
var categories map[string][]string

// preservedPrefixes seed the protected-span pattern: spans opened by these
// phrases are never stripped even when they contain a category token
// (wardrobe clauses and the explicit cross-scene continuity construction).
var preservedPrefixes []string

func init() {
	var res categoryResource
	if err := yaml.Unmarshal(categoriesYAML, &res); err != nil {
		panic(fmt.Sprintf("sanitize: bundled categories.yaml is invalid: %v", err))
	}
	if len(res.Categories) == 0 || len(res.PreservedPrefixes) == 0 {
		panic("sanitize: bundled categories.yaml is missing categories or preserved_prefixes")
	}
	categories = res.Categories
	preservedPrefixes = res.PreservedPrefixes
	tokenPattern = buildTokenPattern()
	protectedSpan = buildProtectedSpanPattern()
}

// AllTokens returns the full flattened, lower-cased token list.
func AllTokens() []string {
	var out []string
	for _, toks := range categories {
		out = append(out, toks...)
	}
	return out
}
