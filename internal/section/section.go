// Package section splits markdown-like cell text into bold-headed sections
// and reassembles it. Header detection is a surface-syntax heuristic: a
// line is a header when, trimmed, it starts with an optional bullet and a
// bold run. Bold runs mid-paragraph at the start of a line are therefore
// read as headers too.
package section

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrIndexOutOfRange = errors.New("section index out of range")
	ErrIntroSection    = errors.New("intro section cannot be moved or deleted")
	ErrNoSections      = errors.New("cell has no section structure")
)

var (
	bulletHeaderRe     = regexp.MustCompile(`^[-*]\s+\*\*[^*]+\*\*`)
	standaloneHeaderRe = regexp.MustCompile(`^\*\*[^*]+\*\*`)
	boldRunRe          = regexp.MustCompile(`(\*\*[^*]+\*\*)`)
	leadingSepRe       = regexp.MustCompile(`^[\s]*[—–:\-]+[\s]*`)
	bulletLineRe       = regexp.MustCompile(`^\s*[-*]\s`)
	blankRunRe         = regexp.MustCompile(`\n{3,}`)
)

// Section is one header plus its body. RawLines are the exact source lines
// and are the only thing Serialize looks at.
type Section struct {
	Header   string
	Body     string
	RawLines []string
}

// IsIntro reports whether s is the header-less text that precedes the first header.
func (s Section) IsIntro() bool {
	return s.Header == ""
}

func (s Section) RawText() string {
	return strings.Join(s.RawLines, "\n")
}

// IsHeaderLine reports whether line opens a new section.
func IsHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if bulletHeaderRe.MatchString(trimmed) {
		return true
	}
	return standaloneHeaderRe.MatchString(trimmed) && !strings.HasPrefix(trimmed, "**Note")
}

// SplitHeader separates the bold title of a header line from any trailing
// description, dropping separators such as a dash or a colon.
func SplitHeader(line string) (title, description string) {
	m := boldRunRe.FindStringIndex(line)
	if m == nil {
		return line, ""
	}
	title = line[m[0]:m[1]]
	after := strings.TrimSpace(line[m[1]:])
	description = strings.TrimSpace(leadingSepRe.ReplaceAllString(after, ""))
	return title, description
}

// Parse splits text into sections. It returns nil when no header line is
// present; callers then treat the value as unstructured markdown.
// Lines before the first header form an intro section with an empty header.
func Parse(text string) []Section {
	lines := strings.Split(text, "\n")
	first := -1
	for i, line := range lines {
		if IsHeaderLine(line) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	var sections []Section
	if first > 0 {
		intro := lines[:first]
		sections = append(sections, Section{
			Body:     strings.TrimSpace(strings.Join(intro, "\n")),
			RawLines: append([]string(nil), intro...),
		})
	}

	var current *Section
	var body []string
	closeCurrent := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		sections = append(sections, *current)
	}
	for _, line := range lines[first:] {
		if IsHeaderLine(line) {
			closeCurrent()
			title, desc := SplitHeader(strings.TrimSpace(line))
			current = &Section{Header: title, RawLines: []string{line}}
			body = body[:0]
			if desc != "" {
				body = append(body, desc)
			}
			continue
		}
		current.RawLines = append(current.RawLines, line)
		body = append(body, line)
	}
	closeCurrent()
	return sections
}

// Serialize is the inverse of Parse.
func Serialize(sections []Section) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = s.RawText()
	}
	return strings.Join(parts, "\n")
}

// Draggable reports whether the sections can be reordered by the user,
// which requires more than one headed section.
func Draggable(sections []Section) bool {
	headed := 0
	for _, s := range sections {
		if !s.IsIntro() {
			headed++
		}
	}
	return headed > 1
}

// NormalizeBody turns every plain, non-blank line into a top-level bullet.
// Display only; the result is never written back to a cell.
func NormalizeBody(body string) string {
	if body == "" {
		return body
	}
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out = append(out, "")
		case bulletLineRe.MatchString(line):
			out = append(out, line)
		default:
			out = append(out, "- "+trimmed)
		}
	}
	return strings.Join(out, "\n")
}
