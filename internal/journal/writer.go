package journal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// Writer writes journal entries as markdown files with YAML frontmatter
// and keeps the sidecar index in sync.
type Writer struct {
	dir   string
	index *Index
}

// NewWriter opens (or creates) a journal directory and its index.
func NewWriter(dir, indexPath string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "create journal directory")
	}
	ix, err := OpenIndex(indexPath)
	if err != nil {
		return nil, err
	}
	return &Writer{dir: dir, index: ix}, nil
}

// Index exposes the writer's backing index for retrieval.
func (w *Writer) Index() *Index { return w.index }

// WriteEntry writes a new journal entry and upserts its metadata into the
// index. Returns the entry's filename (the journal's primary key).
func (w *Writer) WriteEntry(author string, tags []string, summary, content string, decay RelevanceDecay) (string, error) {
	now := time.Now().UTC()
	filename := filenameFor(summary, now)

	fm := frontmatter{Title: summary, Author: author, CreatedAt: now, Decay: decay, Tags: tags}
	rendered, err := renderEntry(fm, content)
	if err != nil {
		return "", err
	}

	path := filepath.Join(w.dir, filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rendered), 0o644); err != nil {
		return "", apperr.Wrap(apperr.KindStoreUnavailable, err, "write journal entry temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", apperr.Wrap(apperr.KindStoreUnavailable, err, "rename journal entry into place")
	}

	entry := IndexEntry{Filename: filename, Author: author, Tags: tags, Summary: summary, CreatedAt: now, Decay: decay}
	if err := w.index.AddEntry(entry); err != nil {
		return "", err
	}
	return filename, nil
}

// Reindex reconciles the sidecar index against the journal directory: any
// index entry whose file has been deleted is dropped, and any markdown
// file on disk missing from the index is parsed and added. Returns the
// number of stale entries removed.
func (w *Writer) Reindex() (int, error) {
	files, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreUnavailable, err, "read journal directory")
	}
	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		if !f.IsDir() && filepath.Ext(f.Name()) == ".md" {
			onDisk[f.Name()] = true
		}
	}

	removed := 0
	for _, e := range w.index.All() {
		if !onDisk[e.Filename] {
			if ok, err := w.index.RemoveEntry(e.Filename); err == nil && ok {
				removed++
			}
		}
	}

	for name := range onDisk {
		if _, ok := w.index.GetEntry(name); ok {
			continue
		}
		entry, err := w.ReadEntry(name)
		if err != nil {
			continue
		}
		_ = w.index.AddEntry(IndexEntry{
			Filename: entry.Filename, Author: entry.Author, Tags: entry.Tags,
			Summary: entry.Summary, CreatedAt: entry.CreatedAt, Decay: entry.Decay,
		})
	}
	return removed, nil
}

// ReadEntry reads an entry back from disk and parses its header.
func (w *Writer) ReadEntry(filename string) (*Entry, error) {
	path := filepath.Join(w.dir, filename)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, apperr.New(apperr.KindNotFound, "journal entry %s not found", filename)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "read journal entry")
	}
	fm, body, err := parseEntry(string(raw))
	if err != nil {
		return nil, err
	}
	return &Entry{
		Filename:  filename,
		Author:    fm.Author,
		Tags:      fm.Tags,
		Summary:   fm.Title,
		CreatedAt: fm.CreatedAt,
		Decay:     fm.Decay,
		Content:   body,
	}, nil
}
