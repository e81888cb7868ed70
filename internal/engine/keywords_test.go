package engine

import (
	"reflect"
	"testing"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"how do I configure the database", []string{"configure", "database"}},
		{"what is in db.go", []string{"db.go"}},
		{"fix the parseConfig helper", []string{"fix", "parseconfig", "helper"}},
		{"run tests in internal/store", []string{"run", "tests", "internal/store"}},
		{`search for "exact phrase here" please`, []string{"exact phrase here", "search"}},
		{"the a an of", nil},
		{"", nil},
		{"v2 migration", []string{"v2", "migration"}},
	}

	for _, tt := range tests {
		got := ExtractKeywords(tt.query)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ExtractKeywords(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestExtractKeywordsDeduplicates(t *testing.T) {
	got := ExtractKeywords("docker docker DOCKER")
	if len(got) != 1 || got[0] != "docker" {
		t.Errorf("got %v, want [docker]", got)
	}
}

func TestIdentifierLike(t *testing.T) {
	tests := []struct {
		tok  string
		want bool
	}{
		{"db.go", true},
		{"snake_case", true},
		{"path/to/file", true},
		{"v2", true},
		{"camelCase", true},
		{"Database", false}, // capitalized prose, not an identifier
		{"plain", false},
	}
	for _, tt := range tests {
		if got := identifierLike(tt.tok); got != tt.want {
			t.Errorf("identifierLike(%q) = %v, want %v", tt.tok, got, tt.want)
		}
	}
}
