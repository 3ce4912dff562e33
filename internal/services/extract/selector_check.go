package extract

import (
	"regexp"
	"strings"
)

// unsafePatterns flag selector strings that smuggle active content or
// style injection. Matching is case-insensitive over the whole selector.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)expression\(`),
	regexp.MustCompile(`(?i)@import`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)data:`),
}

// SelectorPolicy decides whether a caller-supplied CSS selector may be
// evaluated. Selectors carrying an inline declaration block additionally
// have every property name checked against an allow-list.
type SelectorPolicy struct {
	allowedProperties map[string]struct{}
}

// NewSelectorPolicy builds a policy from the allowed property names.
func NewSelectorPolicy(allowedProperties []string) *SelectorPolicy {
	allowed := make(map[string]struct{}, len(allowedProperties))
	for _, p := range allowedProperties {
		allowed[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &SelectorPolicy{allowedProperties: allowed}
}

// IsSafe reports whether the selector passes the unsafe-pattern screen and
// the property allow-list. Unsafe selectors are skipped by the extraction
// engine, never evaluated.
func (p *SelectorPolicy) IsSafe(selector string) bool {
	for _, pattern := range unsafePatterns {
		if pattern.MatchString(selector) {
			return false
		}
	}

	// Property allow-list applies only when the selector embeds a
	// declaration block.
	open := strings.Index(selector, "{")
	if open < 0 {
		return true
	}

	block := strings.TrimSuffix(strings.TrimSpace(selector[open+1:]), "}")
	for _, declaration := range strings.Split(block, ";") {
		name, _, found := strings.Cut(declaration, ":")
		if !found {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := p.allowedProperties[name]; !ok {
			return false
		}
	}
	return true
}
