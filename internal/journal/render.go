package journal

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// RenderHTML converts a journal entry's markdown body to HTML, the way the
// teacher's web dashboard template func does for ticket bodies. A
// malformed document falls back to the escaped raw text rather than
// failing the caller outright.
func RenderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return html.EscapeString(markdown)
	}
	return buf.String()
}

// RelatedEntryPreview is one related entry with its body rendered to HTML,
// ready to hand to any surface (a generated report, an HTTP response) that
// wants a human-readable preview rather than the raw markdown.
type RelatedEntryPreview struct {
	ScoredEntry
	HTML string
}

// RelatedEntriesHTML resolves the Retriever's related-entry ranking into
// rendered previews by reading each entry's body from disk through w.
func RelatedEntriesHTML(w *Writer, r *Retriever, filename string, topN int) ([]RelatedEntryPreview, error) {
	scored := r.GetRelatedEntries(filename, topN)
	previews := make([]RelatedEntryPreview, 0, len(scored))
	for _, s := range scored {
		entry, err := w.ReadEntry(s.Filename)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			return nil, err
		}
		previews = append(previews, RelatedEntryPreview{ScoredEntry: s, HTML: RenderHTML(entry.Content)})
	}
	return previews, nil
}
