package sink

import (
	"context"
	"io"

	"golang.org/x/tools/txtar"
)

// TxtarSink collects files into a txtar archive instead of writing them to disk.
// Files keep their first-write order; a repeated path replaces the earlier content.
type TxtarSink struct {
	// Comment is emitted before the first file marker.
	Comment string

	files MemorySink
}

// NewTxtarSink creates a TxtarSink with the given archive comment.
func NewTxtarSink(comment string) *TxtarSink {
	return &TxtarSink{Comment: comment}
}

// WriteFile adds content to the archive.
func (s *TxtarSink) WriteFile(ctx context.Context, path string, content []byte) error {
	return s.files.WriteFile(ctx, path, content)
}

// Archive returns the collected files as an archive.
func (s *TxtarSink) Archive() *txtar.Archive {
	ar := &txtar.Archive{}
	if s.Comment != "" {
		ar.Comment = []byte(s.Comment + "\n")
	}
	for _, path := range s.files.Paths() {
		ar.Files = append(ar.Files, txtar.File{Name: path, Data: s.files.Get(path)})
	}
	return ar
}

// WriteTo writes the formatted archive to w.
func (s *TxtarSink) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(txtar.Format(s.Archive()))
	return int64(n), err
}
