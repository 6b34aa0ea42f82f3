package torrent

import (
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Verify checks that the payload already on disk under contentPath
// matches d's declared piece hashes, piece by piece. It never touches
// the network; it is used by the CLI's verify command to validate a
// completed (or suspect) download.
func Verify(d *Descriptor, contentPath string) error {
	files := make([]*os.File, len(d.FileList))
	for i, f := range d.FileList {
		path := filepath.Join(contentPath, f.Path)
		fh, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", f.Path, err)
		}
		defer fh.Close()
		files[i] = fh
	}

	buf := make([]byte, d.PieceLength)
	for i := 0; i < d.PieceCount(); i++ {
		begin, length := d.PieceBounds(i)
		piece := buf[:length]
		if err := readAt(d, files, begin, piece); err != nil {
			return fmt.Errorf("reading piece %d: %w", i, err)
		}
		if sha1.Sum(piece) != d.Pieces[i] {
			return fmt.Errorf("piece %d is corrupted", i)
		}
	}
	return nil
}

// readAt fills dst from the concatenated payload stream starting at
// the absolute offset begin, reading across file boundaries as
// needed, since a piece may span more than one file.
func readAt(d *Descriptor, files []*os.File, begin int64, dst []byte) error {
	want := len(dst)
	filled := 0
	for i, f := range d.FileList {
		fileEnd := f.Offset + f.Length
		if begin+int64(filled) >= fileEnd {
			continue
		}
		if begin+int64(want) <= f.Offset {
			break
		}
		readStart := begin + int64(filled) - f.Offset
		if readStart < 0 {
			readStart = 0
		}
		n := want - filled
		if remaining := f.Length - readStart; int64(n) > remaining {
			n = int(remaining)
		}
		if _, err := files[i].Seek(readStart, io.SeekStart); err != nil {
			return err
		}
		if _, err := io.ReadFull(files[i], dst[filled:filled+n]); err != nil {
			return err
		}
		filled += n
		if filled == want {
			return nil
		}
	}
	if filled != want {
		return fmt.Errorf("short read: got %d of %d bytes", filled, want)
	}
	return nil
}
