package session

import (
	"fmt"
	"io"
	"leechtorrent/torrent"
	"os"
	"path/filepath"
	"sync"
)

// PayloadWriter pre-allocates and writes the on-disk payload. A
// multi-file torrent is written as real files nested under a
// directory named after the torrent; a single-file torrent is written
// as one file. Every write is an absolute seek + full write, done
// while holding a single lock so the seeks and writes for distinct
// pieces never interleave.
type PayloadWriter struct {
	mu    sync.Mutex
	files []*os.File
	descr *torrent.Descriptor
}

// OpenPayloadWriter creates (truncating to size) every file described
// by d under root, opens them for read/write, and returns a writer
// ready to receive committed pieces.
func OpenPayloadWriter(d *torrent.Descriptor, root string) (*PayloadWriter, error) {
	files := make([]*os.File, len(d.FileList))
	for i, f := range d.FileList {
		path := filepath.Join(root, f.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			closeAll(files)
			return nil, fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		fh, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			closeAll(files)
			return nil, fmt.Errorf("creating %s: %w", f.Path, err)
		}
		if err := fh.Truncate(f.Length); err != nil {
			closeAll(files)
			return nil, fmt.Errorf("pre-allocating %s: %w", f.Path, err)
		}
		files[i] = fh
	}
	return &PayloadWriter{files: files, descr: d}, nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		if f != nil {
			f.Close()
		}
	}
}

// Close releases the underlying file handles.
func (w *PayloadWriter) Close() error {
	var firstErr error
	for _, f := range w.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriteAt writes data at the absolute offset begin within the
// concatenated payload stream, splitting the write across file
// boundaries when a piece spans more than one file. It seeks and
// writes each affected file fully before returning.
func (w *PayloadWriter) WriteAt(begin int64, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	written := 0
	want := len(data)
	for i, f := range w.descr.FileList {
		if written == want {
			break
		}
		fileStart := f.Offset
		fileEnd := f.Offset + f.Length
		pieceStart := begin + int64(written)
		if pieceStart >= fileEnd || begin+int64(want) <= fileStart {
			continue
		}

		offsetInFile := pieceStart - fileStart
		if offsetInFile < 0 {
			offsetInFile = 0
		}
		n := want - written
		if remaining := f.Length - offsetInFile; int64(n) > remaining {
			n = int(remaining)
		}

		if _, err := w.files[i].Seek(offsetInFile, io.SeekStart); err != nil {
			return fmt.Errorf("seeking %s: %w", f.Path, err)
		}
		if _, err := w.files[i].Write(data[written : written+n]); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
		written += n
	}
	if written != want {
		return fmt.Errorf("piece at offset %d overruns payload bounds", begin)
	}
	return nil
}
