// Package parser extracts frontmatter, wikilinks, and tags from Markdown content.
//
// Parsing is total: malformed input degrades to fewer facts (no frontmatter,
// no links) and never produces an error.
package parser

import (
	"path"
	"strings"
	"unicode"
)

const fmDelim = "---"

// Result holds the facts extracted from one note.
type Result struct {
	// Links are raw wikilink targets in document order. Duplicates are kept.
	Links []string
	// Tags are frontmatter tags followed by inline tags, deduplicated.
	Tags []string
	// Frontmatter is the flat key/value header. The "tags" key is not stored here.
	Frontmatter map[string]string
}

// Parse extracts wikilinks, frontmatter, and tags from raw note text.
func Parse(text string) *Result {
	r := &Result{
		Links:       extractLinks(text),
		Tags:        []string{},
		Frontmatter: make(map[string]string),
	}
	seen := make(map[string]struct{})
	addTag := func(tag string) {
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		r.Tags = append(r.Tags, tag)
	}

	if block, ok := frontmatterBlock(text); ok {
		parseFrontmatter(block, r.Frontmatter, addTag)
	}
	extractInlineTags(Body(text), addTag)
	return r
}

// Title returns the frontmatter title, falling back to the note name derived
// from path when the title is missing or empty.
func (r *Result) Title(notePath string) string {
	if t, ok := r.Frontmatter["title"]; ok && t != "" {
		return t
	}
	return NoteName(notePath)
}

// NoteName derives a note name (file stem) from a vault-relative path.
func NoteName(notePath string) string {
	base := path.Base(strings.ReplaceAll(notePath, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		// Dotfiles such as ".todo" have no extension, only a stem.
		return base
	}
	return stem
}

// extractLinks scans text once for [[target]] and [[target|display]] sequences.
// An unterminated [[ consumes the remainder of the text without emitting a link.
func extractLinks(text string) []string {
	links := []string{}
	runes := []rune(text)
	n := len(runes)
	for i := 0; i < n; i++ {
		if runes[i] != '[' || i+1 >= n || runes[i+1] != '[' {
			continue
		}
		i += 2
		var sb strings.Builder
		closed := false
		for i < n {
			c := runes[i]
			i++
			if c == ']' && i < n && runes[i] == ']' {
				// The outer loop increment skips the second ']'.
				closed = true
				break
			}
			sb.WriteRune(c)
		}
		if !closed {
			break
		}
		raw := sb.String()
		target, _, _ := strings.Cut(raw, "|")
		target = strings.TrimSpace(target)
		if target != "" {
			links = append(links, target)
		}
	}
	return links
}

// frontmatterBlock returns the text between the opening delimiter and the
// next line starting with "---". ok is false when either delimiter is missing.
func frontmatterBlock(text string) (string, bool) {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, fmDelim) {
		return "", false
	}
	rest := trimmed[len(fmDelim):]
	end := strings.Index(rest, "\n"+fmDelim)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// Body returns the text following the frontmatter block, or the full text when
// there is no complete frontmatter block.
func Body(text string) string {
	trimmed := strings.TrimLeftFunc(text, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, fmDelim) {
		return text
	}
	rest := trimmed[len(fmDelim):]
	end := strings.Index(rest, "\n"+fmDelim)
	if end < 0 {
		return text
	}
	return rest[end+1+len(fmDelim):]
}

// parseFrontmatter reads one "key: value" assignment per line. It is a flat
// parser: no nesting, no multi-line scalars, no type coercion.
func parseFrontmatter(block string, fm map[string]string, addTag func(string)) {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key != "tags" {
			fm[key] = value
			continue
		}
		list := strings.TrimRight(strings.TrimLeft(value, "["), "]")
		for _, item := range strings.Split(list, ",") {
			tag := strings.Trim(strings.Trim(strings.TrimSpace(item), `"`), "'")
			if tag != "" {
				addTag(tag)
			}
		}
	}
}

// extractInlineTags collects #tag words. Trailing punctuation is stripped; a
// bare "#" yields nothing.
func extractInlineTags(text string, addTag func(string)) {
	for _, word := range strings.Fields(text) {
		if len(word) <= 1 || word[0] != '#' {
			continue
		}
		tag := strings.TrimLeft(word, "#")
		tag = strings.TrimRightFunc(tag, func(r rune) bool {
			return !isTagRune(r)
		})
		if tag != "" {
			addTag(tag)
		}
	}
}

func isTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '_' || r == '/'
}
