package sanitize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Result reports the character-count bookkeeping the enhancement phase
// requires for logging.
type Result struct {
	SceneNumber   int
	BeforeChars   int
	AfterChars    int
	CharsRemoved  int
	SanitizedText string
}

// tokenPattern is built by the categories.go init after the bundled YAML
// resource is parsed.
var tokenPattern *regexp.Regexp

func buildTokenPattern() *regexp.Regexp {
	tokens := AllTokens()
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

// protectedSpan matches the phrases that must survive sanitization intact:
// the cross-scene continuity construction ("the exact same X from Scene 1" /
// "from Reference Image 2") and wardrobe clauses ("wearing ...",
// "dressed in ..." up to the end of the clause). Built by the categories.go
// init from the bundled resource's preserved_prefixes list.
var protectedSpan *regexp.Regexp

const continuityPrefix = "the exact same"

func buildProtectedSpanPattern() *regexp.Regexp {
	var clausePrefixes []string
	continuity := false
	for _, p := range preservedPrefixes {
		if strings.EqualFold(p, continuityPrefix) {
			continuity = true
			continue
		}
		clausePrefixes = append(clausePrefixes, regexp.QuoteMeta(p))
	}
	var alts []string
	if continuity {
		alts = append(alts, continuityPrefix+` [^.!?\n]*?from (?:scene|reference image) \d+`)
	}
	if len(clausePrefixes) > 0 {
		alts = append(alts, `(?:`+strings.Join(clausePrefixes, "|")+`) [^,.!?\n]*`)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(alts, "|") + `)`)
}

// Sanitize strips every category token from text while leaving protected
// spans untouched: matched spans are masked with placeholders, the token
// pattern runs over the remainder, and the spans are restored afterwards.
// Environment and cinematography language never matches a category token in
// the first place.
func Sanitize(sceneNumber int, text string) Result {
	before := len([]rune(text))

	var spans []string
	masked := protectedSpan.ReplaceAllStringFunc(text, func(m string) string {
		spans = append(spans, m)
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	})

	cleaned := tokenPattern.ReplaceAllString(masked, "")

	for i, s := range spans {
		cleaned = strings.Replace(cleaned, fmt.Sprintf("\x00%d\x00", i), s, 1)
	}
	cleaned = collapseWhitespace(cleaned)

	after := len([]rune(cleaned))
	return Result{
		SceneNumber:   sceneNumber,
		BeforeChars:   before,
		AfterChars:    after,
		CharsRemoved:  before - after,
		SanitizedText: cleaned,
	}
}

var whitespaceRun = regexp.MustCompile(`[ \t]{2,}`)

func collapseWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
