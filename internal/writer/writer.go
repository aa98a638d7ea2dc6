// Package writer implements the JSONL writer (C8): it persists chunks as
// newline-delimited JSON per spec §6, one line per chunk.
package writer

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/hataya-labs/sentchunk/internal/chunk"
	"github.com/hataya-labs/sentchunk/internal/errs"
)

// record is the on-wire shape from spec §6:
// {"text": "...", "sentences": ["s1", "s2", ...], "metadata": {...}}
type record struct {
	Text      string   `json:"text"`
	Sentences []string `json:"sentences"`
	Metadata  metadata `json:"metadata"`
}

type metadata struct {
	ID            string `json:"id"`
	HeadingLevels []int  `json:"heading_levels,omitempty"`
	SpannedList   bool   `json:"spanned_list"`
	LineStart     int    `json:"line_start"`
	LineEnd       int    `json:"line_end"`
	TokenCount    int    `json:"token_count"`
	CharCount     int    `json:"char_count"`
}

// Writer persists a chunk stream to an underlying io.Writer as JSONL.
type Writer struct {
	path string
	buf  *bufio.Writer
	enc  *json.Encoder
}

// New wraps w (typically a file opened by the caller) with a buffered
// JSONL encoder. path is used only to annotate WriterError.
func New(path string, w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{path: path, buf: buf, enc: json.NewEncoder(buf)}
}

// Write appends one chunk as a JSON line.
func (w *Writer) Write(c chunk.Chunk) error {
	sentences := make([]string, len(c.Sentences))
	for i, s := range c.Sentences {
		sentences[i] = s.Text
	}
	rec := record{
		Text:      c.Text,
		Sentences: sentences,
		Metadata: metadata{
			ID:            c.Metadata.ID,
			HeadingLevels: c.Metadata.HeadingLevels,
			SpannedList:   c.Metadata.SpannedList,
			LineStart:     c.Metadata.LineStart,
			LineEnd:       c.Metadata.LineEnd,
			TokenCount:    c.TokenCount,
			CharCount:     c.CharCount,
		},
	}
	if err := w.enc.Encode(rec); err != nil {
		return &errs.WriterError{Path: w.path, Err: err}
	}
	return nil
}

// Flush pushes buffered bytes to the underlying writer. Callers must flush
// on the success path; on the error path (§7) the caller closes the
// underlying file without flushing, truncating any unwritten partial line.
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return &errs.WriterError{Path: w.path, Err: err}
	}
	return nil
}

// Drain consumes every chunk from chunks, writing each in order, and
// flushes once at the end. On any write error it stops immediately without
// flushing, per §7's "writer closes its file cleanly (truncating any
// unflushed partial line)".
func Drain(w *Writer, chunks <-chan chunk.Chunk) error {
	for c := range chunks {
		if err := w.Write(c); err != nil {
			return err
		}
	}
	return w.Flush()
}
