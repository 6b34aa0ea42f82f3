package torrent

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"leechtorrent/bencode"
	"leechtorrent/utils"
	"slices"
	"strings"
	"time"
)

// Descriptor is the immutable metainfo of a torrent: everything the
// session needs to know to drive a download once it exists. It never
// changes for the lifetime of a run.
type Descriptor struct {
	AnnounceList []string
	Name         string
	UrlList      []string
	CreatedBy    string
	Comment      string
	CreatedAt    int64
	FileList     []*File
	PieceLength  int64
	Pieces       [][20]byte
	InfoHash     [20]byte
	Length       int64
	IsPrivate    bool
}

func newDescriptor() *Descriptor {
	return &Descriptor{
		AnnounceList: make([]string, 0),
		UrlList:      make([]string, 0),
		FileList:     make([]*File, 0),
		Pieces:       make([][20]byte, 0),
	}
}

func (d *Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  Name: %s\n", d.Name))
	sb.WriteString(fmt.Sprintf("  InfoHash: %s\n", d.InfoHashString()))
	sb.WriteString(fmt.Sprintf("  Length: %s\n", utils.FormatBytes(d.Length)))

	sb.WriteString("  AnnounceList:\n")
	for _, announce := range d.AnnounceList {
		sb.WriteString(fmt.Sprintf("     %s\n", announce))
	}

	sb.WriteString("  UrlList:\n")
	for _, url := range d.UrlList {
		sb.WriteString(fmt.Sprintf("     %s\n", url))
	}
	sb.WriteString(fmt.Sprintf("  CreatedBy: %s\n", d.CreatedBy))
	sb.WriteString(fmt.Sprintf("  Comment: %s\n", d.Comment))
	sb.WriteString(fmt.Sprintf("  CreatedAt: %s\n", time.Unix(d.CreatedAt, 0).String()))
	sb.WriteString("  FileList:\n")
	for _, file := range d.FileList {
		sb.WriteString(fmt.Sprintf("     %s\n", file.String()))
	}
	sb.WriteString(fmt.Sprintf("  PieceLength: %s\n", utils.FormatBytes(d.PieceLength)))
	return sb.String()
}

// InfoHashString returns the info-hash as lowercase hex, for logging
// and the progress ledger.
func (d *Descriptor) InfoHashString() string {
	return hex.EncodeToString(d.InfoHash[:])
}

// PieceCount is the number N of pieces the payload is split into.
func (d *Descriptor) PieceCount() int {
	return len(d.Pieces)
}

// PieceBounds returns the absolute offset and length of piece i within
// the concatenated payload. Every piece has length PieceLength except
// the last, which is shortened to fit Length exactly.
func (d *Descriptor) PieceBounds(i int) (begin, length int64) {
	begin = int64(i) * d.PieceLength
	length = d.PieceLength
	if begin+length > d.Length {
		length = d.Length - begin
	}
	return begin, length
}

// File is one entry of a (possibly multi-file) payload: its length,
// its path relative to the payload root, and the byte range it
// occupies within the concatenated payload stream.
type File struct {
	Length int64
	Path   string
	Offset int64
}

func newFile(length int64, path string) *File {
	return &File{Length: length, Path: path}
}

func (f *File) String() string {
	return fmt.Sprintf("Path: %s(%s)", f.Path, utils.FormatBytes(f.Length))
}

// FromBencodeData converts a decoded metainfo dictionary into a
// Descriptor, computing the info-hash as the SHA-1 of the re-encoded
// info sub-dictionary. Returns nil if data is nil.
func FromBencodeData(data *bencode.Data) *Descriptor {
	if data == nil {
		return nil
	}
	d := newDescriptor()
	rootDict := data.AsDict()
	infoDict := rootDict["info"].AsDict()

	if announceList, ok := rootDict["announce-list"]; ok {
		for _, tier := range announceList.AsList() {
			for _, announce := range tier.AsList() {
				d.AnnounceList = append(d.AnnounceList, announce.AsString())
			}
		}
	}
	if announce, ok := rootDict["announce"]; ok {
		if !slices.Contains(d.AnnounceList, announce.AsString()) {
			d.AnnounceList = append(d.AnnounceList, announce.AsString())
		}
	}

	if name, ok := infoDict["name"]; ok {
		d.Name = name.AsString()
	}

	if urlList, ok := rootDict["url-list"]; ok {
		for _, url := range urlList.AsList() {
			d.UrlList = append(d.UrlList, url.AsString())
		}
	}

	if comment, ok := rootDict["comment"]; ok {
		d.Comment = comment.AsString()
	}
	if createdBy, ok := rootDict["created by"]; ok {
		d.CreatedBy = createdBy.AsString()
	}
	if createdAt, ok := rootDict["creation date"]; ok {
		d.CreatedAt = createdAt.AsInt()
	}

	if pieceLength, ok := infoDict["piece length"]; ok {
		d.PieceLength = pieceLength.AsInt()
	}

	// Multi-file torrents nest every entry's path under Name, matching
	// the payload layout peers and other clients expect on disk.
	var offset int64
	if files, ok := infoDict["files"]; ok {
		for _, fileData := range files.AsList() {
			fileDict := fileData.AsDict()
			path := d.Name
			if filePath, ok := fileDict["path"]; ok {
				parts := filePath.AsList()
				segs := make([]string, len(parts))
				for i, p := range parts {
					segs[i] = p.AsString()
				}
				path = d.Name + "/" + strings.Join(segs, "/")
			}
			file := newFile(fileDict["length"].AsInt(), path)
			file.Offset = offset
			offset += file.Length
			d.FileList = append(d.FileList, file)
		}
		d.Length = offset
	} else {
		d.Length = infoDict["length"].AsInt()
		file := newFile(d.Length, d.Name)
		d.FileList = append(d.FileList, file)
	}

	if pieces, ok := infoDict["pieces"]; ok {
		raw := pieces.AsBytes()
		for i := 0; i+20 <= len(raw); i += 20 {
			var h [20]byte
			copy(h[:], raw[i:i+20])
			d.Pieces = append(d.Pieces, h)
		}
	}

	if isPrivate, ok := infoDict["private"]; ok {
		d.IsPrivate = isPrivate.AsInt() == 1
	}

	d.InfoHash = sha1.Sum(rootDict["info"].ToBytes())

	return d
}

// FromBytes decodes a bencoded metainfo file into a Descriptor.
func FromBytes(data []byte) (*Descriptor, error) {
	decoded, _, err := bencode.Decode(data)
	if err != nil {
		return nil, &MetainfoError{Cause: fmt.Errorf("decoding metainfo: %w", err)}
	}
	return FromBencodeData(decoded), nil
}
