package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/snonux/readalong/internal/page"
)

// Entry is one paragraph read from a batch file
type Entry struct {
	Index int
	Text  string
}

// ReadBatchFile reads paragraphs from a file, one per line.
// Supports formats:
// - Text only: "The market opened higher." (index follows the previous entry)
// - With index: "7 = The market opened higher." (explicit index)
// - Comments: lines starting with "#" are ignored
func ReadBatchFile(filename string) ([]Entry, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var entries []Entry
	seen := make(map[int]int)
	next := 0

	for n, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		index, text := next, line
		if left, right, ok := strings.Cut(line, "="); ok {
			if i, err := strconv.Atoi(strings.TrimSpace(left)); err == nil && i >= 0 {
				index, text = i, strings.TrimSpace(right)
			}
		}
		if text == "" {
			// "7 =" has no paragraph to translate
			continue
		}

		if first, dup := seen[index]; dup {
			return nil, fmt.Errorf("line %d: paragraph index %d already used on line %d", n+1, index, first)
		}
		seen[index] = n + 1

		entries = append(entries, Entry{Index: index, Text: text})
		next = index + 1
	}

	return entries, nil
}

// LoadDocument reads a batch file into a document whose URL is the file's
// absolute file:// location
func LoadDocument(filename string) (*page.Document, error) {
	entries, err := ReadBatchFile(filename)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve batch file path: %w", err)
	}

	doc := page.NewDocument("file://" + filepath.ToSlash(abs))
	for _, e := range entries {
		doc.AddParagraph(e.Index, e.Text)
	}
	return doc, nil
}
