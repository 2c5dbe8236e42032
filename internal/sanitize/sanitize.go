// Package sanitize reduces user-supplied free text to plain text before it is stored.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// tagPattern matches complete tags and comment openers. A '<' that starts
// none of these is literal text, as in "a<b c" or "prazo < 24h".
var tagPattern = regexp.MustCompile(`<(?:/?[A-Za-z][A-Za-z0-9-]*(?:\s[^<>]*)?/?>|!--)`)

// PlainText drops markup, script and style content and decodes entities.
// Line breaks survive; other whitespace runs collapse to one space.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}

	z := html.NewTokenizer(strings.NewReader(escapeStray(s)))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; keep what was read.
			return collapse(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if isRawText(name) {
				skip++
			}
			b.WriteString(separator(name, false))
		case html.EndTagToken:
			name, _ := z.TagName()
			if isRawText(name) && skip > 0 {
				skip--
			}
			b.WriteString(separator(name, true))
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Line is PlainText for single-line fields.
func Line(s string) string {
	return strings.Join(strings.Fields(PlainText(s)), " ")
}

// escapeStray turns every '<' that does not open a tag into an entity so the
// tokenizer reads it as text.
func escapeStray(s string) string {
	tags := tagPattern.FindAllStringIndex(s, -1)
	var b strings.Builder
	b.Grow(len(s))
	next := 0
	for i := 0; i < len(s); i++ {
		for next < len(tags) && tags[next][1] <= i {
			next++
		}
		if s[i] == '<' && (next == len(tags) || tags[next][0] != i) {
			b.WriteString("&lt;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isRawText(name []byte) bool {
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

// separator is the text a removed tag leaves behind. Block elements end a line
// when they close.
func separator(name []byte, end bool) string {
	switch string(name) {
	case "br":
		return "\n"
	case "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
		if end {
			return "\n"
		}
	}
	return " "
}

// collapse trims every line, squeezes inner whitespace and keeps at most one
// blank line between paragraphs.
func collapse(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var lines []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
