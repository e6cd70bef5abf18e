package wikitext

import (
	"strings"
	"testing"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		expected string
	}{
		{
			name:     "plain text passes through",
			markup:   "Paris is the capital of France.",
			expected: "Paris is the capital of France.",
		},
		{
			name:     "simple link keeps target",
			markup:   "[[Paris]] is a city",
			expected: "Paris is a city",
		},
		{
			name:     "piped link keeps label",
			markup:   "She rode the [[metro system|metro]] daily",
			expected: "She rode the metro daily",
		},
		{
			name:     "category link dropped",
			markup:   "Text\n[[Category:Cities in France]]",
			expected: "Text",
		},
		{
			name:     "template removed",
			markup:   "{{Infobox settlement|name=Paris}}Paris is the capital",
			expected: "Paris is the capital",
		},
		{
			name:     "nested template removed",
			markup:   "{{Infobox|mayor={{nobold|Anne Hidalgo}}}}Paris remains",
			expected: "Paris remains",
		},
		{
			name:     "table removed",
			markup:   "before\n{| class=\"wikitable\"\n|-\n| cell\n|}\nafter",
			expected: "before\n\nafter",
		},
		{
			name:     "reference contents dropped",
			markup:   "Fact<ref name=\"a\">{{cite web|url=x}}</ref> and more<ref name=\"b\" />.",
			expected: "Fact and more.",
		},
		{
			name:     "comment removed",
			markup:   "be<!-- hidden note -->fore",
			expected: "before",
		},
		{
			name:     "heading markers removed",
			markup:   "== History ==\nParis dates back centuries.",
			expected: "History\nParis dates back centuries.",
		},
		{
			name:     "bold and italic quotes removed",
			markup:   "'''Paris''' is ''lovely''",
			expected: "Paris is lovely",
		},
		{
			name:     "list markers stripped",
			markup:   "* item one\n# item two",
			expected: "item one\nitem two",
		},
		{
			name:     "character entities decoded",
			markup:   "Tickets &amp; fares",
			expected: "Tickets & fares",
		},
		{
			name:     "line break tag becomes newline",
			markup:   "line one<br>line two",
			expected: "line one\nline two",
		},
		{
			name:     "magic word dropped",
			markup:   "__NOTOC__Content",
			expected: "Content",
		},
		{
			name:     "blank line runs collapsed",
			markup:   "first\n\n\n\nsecond",
			expected: "first\n\nsecond",
		},
		{
			name:     "empty input",
			markup:   "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Strip(tt.markup); got != tt.expected {
				t.Errorf("Strip() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStrip_LinkMarkupNeverSurvives(t *testing.T) {
	got := Strip("[[Paris]] is a city")

	if !strings.Contains(got, "Paris is a city") {
		t.Errorf("Expected prose preserved, got %q", got)
	}

	if strings.ContainsAny(got, "[]") {
		t.Errorf("Expected no link brackets in output, got %q", got)
	}
}

func TestStrip_MediaCaptionWithNestedLink(t *testing.T) {
	got := Strip("A photo. [[File:Eiffel.jpg|thumb|The [[Eiffel Tower]] at night]] More prose.")

	if strings.Contains(got, "Eiffel.jpg") {
		t.Errorf("Expected media link dropped, got %q", got)
	}

	if !strings.Contains(got, "A photo.") || !strings.Contains(got, "More prose.") {
		t.Errorf("Expected surrounding prose preserved, got %q", got)
	}
}

func TestStrip_ExternalLinks(t *testing.T) {
	got := Strip("See [https://example.org the site] and [https://example.org].")

	if !strings.Contains(got, "the site") {
		t.Errorf("Expected link label preserved, got %q", got)
	}

	if strings.Contains(got, "https://") {
		t.Errorf("Expected URLs removed, got %q", got)
	}
}

func TestStrip_ArticleShapedInput(t *testing.T) {
	markup := `{{Short description|Capital of France}}
'''Paris''' is the capital of [[France]].<ref>{{cite book|title=Atlas}}</ref>

== Geography ==
The [[Seine]] crosses the city.

[[Category:Capitals in Europe]]`

	got := Strip(markup)

	for _, want := range []string{
		"Paris is the capital of France.",
		"Geography",
		"The Seine crosses the city.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in output, got %q", want, got)
		}
	}

	for _, banned := range []string{"{{", "}}", "[[", "]]", "<ref", "'''", "=="} {
		if strings.Contains(got, banned) {
			t.Errorf("Expected %q removed, got %q", banned, got)
		}
	}
}
