package section

import "strings"

func parseStructured(text string) ([]Section, error) {
	sections := Parse(text)
	if sections == nil {
		return nil, ErrNoSections
	}
	return sections, nil
}

// Reorder moves the section at index from to index to. Moving a section onto
// its own index returns text unchanged. An intro section stays first.
func Reorder(text string, from, to int) (string, error) {
	sections, err := parseStructured(text)
	if err != nil {
		return "", err
	}
	if from < 0 || from >= len(sections) || to < 0 || to >= len(sections) {
		return "", ErrIndexOutOfRange
	}
	if sections[from].IsIntro() || (to == 0 && sections[0].IsIntro()) {
		return "", ErrIntroSection
	}
	if from == to {
		return text, nil
	}
	moved := sections[from]
	rest := append(append([]Section(nil), sections[:from]...), sections[from+1:]...)
	out := make([]Section, 0, len(sections))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return Serialize(out), nil
}

// Delete removes the section at index. Removing the last section yields "".
func Delete(text string, index int) (string, error) {
	sections, err := parseStructured(text)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(sections) {
		return "", ErrIndexOutOfRange
	}
	if sections[index].IsIntro() {
		return "", ErrIntroSection
	}
	remaining := append(append([]Section(nil), sections[:index]...), sections[index+1:]...)
	if len(remaining) == 0 {
		return "", nil
	}
	return Serialize(remaining), nil
}

// Edit replaces the raw lines of one section with newText.
func Edit(text string, index int, newText string) (string, error) {
	sections, err := parseStructured(text)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(sections) {
		return "", ErrIndexOutOfRange
	}
	sections[index].RawLines = strings.Split(newText, "\n")
	return Serialize(sections), nil
}

// Chunks splits text at header lines into raw text blocks. Lines before the
// first header are their own block. Returns nil for empty input.
func Chunks(text string) []string {
	var chunks [][]string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if IsHeaderLine(line) && len(current) > 0 {
			chunks = append(chunks, current)
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	if len(chunks) == 0 {
		return nil
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = strings.Join(c, "\n")
	}
	return out
}

// RemoveText deletes the first occurrence of sectionText from source,
// collapses runs of three or more newlines to two and trims the result.
func RemoveText(source, sectionText string) string {
	out := strings.Replace(source, sectionText, "", 1)
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// InsertText places sectionText into target verbatim. With a drop index and
// a non-empty target the text is spliced in before the chunk at that index;
// otherwise it is appended.
func InsertText(target, sectionText string, dropIndex *int) string {
	if dropIndex != nil && target != "" {
		chunks := Chunks(target)
		if chunks != nil && *dropIndex >= 0 && *dropIndex <= len(chunks) {
			out := make([]string, 0, len(chunks)+1)
			out = append(out, chunks[:*dropIndex]...)
			out = append(out, sectionText)
			out = append(out, chunks[*dropIndex:]...)
			return strings.Join(out, "\n")
		}
		return strings.TrimSpace(target) + "\n" + sectionText
	}
	if target == "" {
		return sectionText
	}
	return strings.TrimSpace(target) + "\n" + sectionText
}

// Move relocates sectionText from source to target and returns both new values.
func Move(source, target, sectionText string, dropIndex *int) (newSource, newTarget string) {
	return RemoveText(source, sectionText), InsertText(target, sectionText, dropIndex)
}
