package engine

import (
	"strings"
	"unicode"
)

// stopwords are dropped from queries. Small on purpose: over-aggressive
// stopword lists eat identifiers that happen to be common words.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "for": true,
	"from": true, "have": true, "how": true, "i": true, "in": true, "is": true,
	"it": true, "me": true, "my": true, "of": true, "on": true, "or": true,
	"please": true, "should": true, "that": true, "the": true, "this": true,
	"to": true, "want": true, "we": true, "what": true, "when": true,
	"where": true, "which": true, "will": true, "with": true, "would": true,
	"you": true, "your": true,
}

// ExtractKeywords tokenizes a free-text query into the keywords used for
// candidate pre-filtering and the scorer's keyword boost. Quoted
// substrings survive whole; identifier-like tokens (dots, underscores,
// slashes, digits) are kept even when short; plain words are lowercased
// and stopword-filtered.
func ExtractKeywords(query string) []string {
	var keywords []string
	seen := map[string]bool{}

	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}

	rest := query
	// Pull quoted substrings out first so they survive tokenization.
	for {
		quoted, remainder, ok := extractQuoted(rest)
		if !ok {
			break
		}
		add(quoted)
		rest = remainder
	}

	for _, tok := range strings.FieldsFunc(rest, isTokenBoundary) {
		tok = strings.Trim(tok, "._-/")
		if tok == "" {
			continue
		}
		lower := strings.ToLower(tok)
		if identifierLike(tok) {
			add(lower)
			continue
		}
		if len(lower) < 3 || stopwords[lower] {
			continue
		}
		add(lower)
	}

	return keywords
}

// extractQuoted finds the first balanced single- or double-quoted
// substring and returns (content, input-with-it-removed, found).
func extractQuoted(s string) (string, string, bool) {
	for _, q := range []byte{'"', '\''} {
		start := strings.IndexByte(s, q)
		if start < 0 {
			continue
		}
		end := strings.IndexByte(s[start+1:], q)
		if end < 0 {
			continue
		}
		content := s[start+1 : start+1+end]
		remainder := s[:start] + " " + s[start+2+end:]
		if strings.TrimSpace(content) == "" {
			return "", remainder, true
		}
		return content, remainder, true
	}
	return "", s, false
}

// isTokenBoundary splits on anything that can't be part of an identifier
// or a path-like token.
func isTokenBoundary(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return false
	}
	switch r {
	case '.', '_', '-', '/':
		return false
	}
	return true
}

// identifierLike reports whether a token reads like a code identifier or
// file reference rather than prose: contains a dot, underscore, slash, a
// digit, or mixed case.
func identifierLike(tok string) bool {
	if strings.ContainsAny(tok, "._/") {
		return true
	}
	hasDigit := false
	interiorUpper := false
	for i, r := range tok {
		if unicode.IsDigit(r) {
			hasDigit = true
		}
		// Capitalized prose words don't count; camelCase does.
		if i > 0 && unicode.IsUpper(r) {
			interiorUpper = true
		}
	}
	return hasDigit || interiorUpper
}
