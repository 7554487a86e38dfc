// Package markdown parses Markdown documents into heading-delimited
// chunks with hierarchical heading paths.
//
// Chunking is deterministic: the same text always yields the same chunk
// sequence (content, order, heading paths). Cache validity depends on
// this.
package markdown

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

var (
	// headingRe matches ATX headings at any level.
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

	// sourceRe matches the "Source: URL" provenance lines the crawler
	// writes into fetched Markdown.
	sourceRe = regexp.MustCompile(`^Source:\s*(https?://\S+)`)
)

// Result is the outcome of chunking one document.
type Result struct {
	// Title comes from the first level-1 heading, or the filename.
	Title string

	// Outline is the heading structure in document order: the empty
	// root path, then each heading's full path. Recorded even for
	// headings whose (empty) chunks are dropped.
	Outline []domain.HeadingPath

	// Chunks is the ordered chunk sequence. Embeddings are not set.
	Chunks []domain.Chunk
}

// stackEntry is one open heading on the path stack.
type stackEntry struct {
	level int
	text  string
}

// Chunk splits a document's text into heading-delimited chunks.
//
// Each heading line starts a new chunk and adjusts the heading-path
// stack: a level-N heading pops every entry at level >= N and pushes
// itself, keeping shallower ancestors. Content before the first heading
// forms an implicit root chunk with an empty path. Chunks with no
// content after trimming are dropped. Malformed level jumps (a level-4
// heading directly under a level-1) are accepted as-is.
func Chunk(path, content string) Result {
	res := Result{
		Title:   extractTitle(content, path),
		Outline: []domain.HeadingPath{{}},
	}

	var (
		stack     []stackEntry
		lines     []string
		sourceURL string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		lines = lines[:0]
		if text == "" {
			return
		}
		res.Chunks = append(res.Chunks, domain.Chunk{
			DocumentPath: path,
			Ordinal:      len(res.Chunks),
			Headings:     pathOf(stack),
			Content:      text,
			ContentHash:  xxhash.Sum64String(text),
			SourceURL:    sourceURL,
		})
	}

	for _, line := range strings.Split(content, "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			level := len(m[1])
			text := strings.TrimSpace(m[2])

			// Pop entries at the same or deeper level, keep
			// shallower ancestors.
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, stackEntry{level: level, text: text})

			res.Outline = append(res.Outline, pathOf(stack))
			sourceURL = ""
			continue
		}

		if m := sourceRe.FindStringSubmatch(line); m != nil {
			// Provenance lines annotate the section, they are
			// not content.
			if sourceURL == "" {
				sourceURL = m[1]
			}
			continue
		}

		lines = append(lines, line)
	}
	flush()

	return res
}

// pathOf copies the stack's heading texts into an owned path.
func pathOf(stack []stackEntry) domain.HeadingPath {
	path := make(domain.HeadingPath, len(stack))
	for i, e := range stack {
		path[i] = e.text
	}
	return path
}

// extractTitle extracts a title from the first level-1 heading or falls
// back to a cleaned-up filename.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
