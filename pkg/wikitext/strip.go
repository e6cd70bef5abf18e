// Package wikitext converts MediaWiki markup to plain text.
package wikitext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	reComment      = regexp.MustCompile(`(?s)<!--.*?-->`)
	reWikiLink     = regexp.MustCompile(`\[\[([^\[\]]*)\]\]`)
	reExtLinkLabel = regexp.MustCompile(`\[(?:https?|ftp)://[^\s\]]*[ \t]+([^\]]*)\]`)
	reExtLinkBare  = regexp.MustCompile(`\[(?:https?|ftp)://[^\s\]]*\]`)
	reHeading      = regexp.MustCompile(`(?m)^=+[ \t]*(.*?)[ \t]*=+[ \t]*$`)
	reQuotes       = regexp.MustCompile(`'{2,}`)
	reListMarker   = regexp.MustCompile(`(?m)^[*#;:]+[ \t]*`)
	reMagicWord    = regexp.MustCompile(`__[A-Z_]+__`)
	reHorizontal   = regexp.MustCompile(`(?m)^-{4,}[ \t]*$`)
	reSpaceRun     = regexp.MustCompile(`[ \t\x{00A0}]+`)
	reLineEdges    = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	reBlankLineRun = regexp.MustCompile(`\n{3,}`)
)

// Tags whose contents are citations, media or math rather than prose.
var dropContentTags = map[string]bool{
	"ref":             true,
	"gallery":         true,
	"math":            true,
	"score":           true,
	"syntaxhighlight": true,
	"source":          true,
	"timeline":        true,
	"imagemap":        true,
}

// Link targets that embed media or categorize rather than link prose.
var droppedLinkPrefixes = []string{"file:", "image:", "media:", "category:"}

// Strip converts MediaWiki markup to plain text: templates, tables, citation
// markup, link syntax, headings and inline formatting are removed, link
// labels and article prose are kept, and whitespace is normalized.
func Strip(markup string) string {
	text := markup
	text = reComment.ReplaceAllString(text, "")
	text = stripBalanced(text, "{{", "}}")
	text = stripBalanced(text, "{|", "|}")
	text = stripHTML(text)
	text = stripWikiLinks(text)
	text = reExtLinkLabel.ReplaceAllString(text, "$1")
	text = reExtLinkBare.ReplaceAllString(text, "")
	text = reHeading.ReplaceAllString(text, "$1")
	text = reQuotes.ReplaceAllString(text, "")
	text = reListMarker.ReplaceAllString(text, "")
	text = reMagicWord.ReplaceAllString(text, "")
	text = reHorizontal.ReplaceAllString(text, "")

	return normalizeWhitespace(text)
}

// stripBalanced removes every region enclosed by the delimiter pair,
// including nested regions. Text after an unmatched opener is dropped.
func stripBalanced(s, open, closing string) string {
	if !strings.Contains(s, open) {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	depth := 0

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], open) {
			depth++
			i += len(open)

			continue
		}

		if depth > 0 && strings.HasPrefix(s[i:], closing) {
			depth--
			i += len(closing)

			continue
		}

		if depth == 0 {
			b.WriteByte(s[i])
		}

		i++
	}

	return b.String()
}

// stripHTML drops markup-level tags while keeping their prose, decodes
// character entities, and removes the contents of citation and media tags.
func stripHTML(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// Tokenizing ends at io.EOF; on malformed input we keep
			// whatever prose was recovered up to this point.
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			if dropContentTags[string(name)] {
				skipDepth++
			} else if string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if dropContentTags[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// stripWikiLinks rewrites internal links to their labels, innermost first so
// that links nested inside media captions resolve before the caption itself
// is dropped.
func stripWikiLinks(s string) string {
	for strings.Contains(s, "[[") {
		replaced := false

		s = reWikiLink.ReplaceAllStringFunc(s, func(m string) string {
			replaced = true
			return resolveLink(m[2 : len(m)-2])
		})

		if !replaced {
			break
		}
	}

	return s
}

// resolveLink maps the inside of a [[...]] link to its display text.
func resolveLink(inner string) string {
	target := inner
	label := inner

	if idx := strings.Index(inner, "|"); idx >= 0 {
		target = inner[:idx]
		label = inner[strings.LastIndex(inner, "|")+1:]
	}

	lowered := strings.ToLower(strings.TrimSpace(target))
	for _, prefix := range droppedLinkPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return ""
		}
	}

	return label
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = reSpaceRun.ReplaceAllString(s, " ")
	s = reLineEdges.ReplaceAllString(s, "")
	s = reBlankLineRun.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
