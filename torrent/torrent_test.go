package torrent

import (
	"crypto/sha1"
	"leechtorrent/bencode"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleFileMetainfo(t *testing.T) []byte {
	t.Helper()
	pieceHash := sha1.Sum([]byte("piece-data-content"))
	info := map[string]any{
		"name":         "movie.mkv",
		"length":       int64(1024),
		"piece length": int64(512),
		"pieces":       string(pieceHash[:]) + string(pieceHash[:]),
	}
	root := map[string]any{
		"announce": "http://tracker.example/announce",
		"info":     info,
	}
	return bencode.NewData(root).ToBytes()
}

func multiFileMetainfo(t *testing.T) []byte {
	t.Helper()
	pieceHash := sha1.Sum([]byte("x"))
	info := map[string]any{
		"name":         "album",
		"piece length": int64(16),
		"pieces":       string(pieceHash[:]),
		"files": []any{
			map[string]any{
				"length": int64(10),
				"path":   []any{"disc1", "track1.flac"},
			},
			map[string]any{
				"length": int64(6),
				"path":   []any{"track2.flac"},
			},
		},
	}
	root := map[string]any{
		"announce-list": []any{
			[]any{"http://tracker1.example/announce"},
			[]any{"http://tracker2.example/announce"},
		},
		"info": info,
	}
	return bencode.NewData(root).ToBytes()
}

func TestFromBytesSingleFile(t *testing.T) {
	raw := singleFileMetainfo(t)
	descr, err := FromBytes(raw)
	require.NoError(t, err)
	require.NotNil(t, descr)

	assert.Equal(t, "movie.mkv", descr.Name)
	assert.Equal(t, int64(1024), descr.Length)
	assert.Equal(t, int64(512), descr.PieceLength)
	assert.Equal(t, []string{"http://tracker.example/announce"}, descr.AnnounceList)
	assert.Equal(t, 2, descr.PieceCount())
	require.Len(t, descr.FileList, 1)
	assert.Equal(t, "movie.mkv", descr.FileList[0].Path)
	assert.Equal(t, int64(0), descr.FileList[0].Offset)
}

func TestFromBytesMultiFile(t *testing.T) {
	raw := multiFileMetainfo(t)
	descr, err := FromBytes(raw)
	require.NoError(t, err)

	assert.Equal(t, int64(16), descr.Length)
	require.Len(t, descr.FileList, 2)
	assert.Equal(t, "album/disc1/track1.flac", descr.FileList[0].Path)
	assert.Equal(t, int64(0), descr.FileList[0].Offset)
	assert.Equal(t, "album/track2.flac", descr.FileList[1].Path)
	assert.Equal(t, int64(10), descr.FileList[1].Offset)
	assert.Equal(t, []string{
		"http://tracker1.example/announce",
		"http://tracker2.example/announce",
	}, descr.AnnounceList)
}

func TestPieceBoundsShortensLastPiece(t *testing.T) {
	descr := &Descriptor{Length: 1024, PieceLength: 512}
	begin, length := descr.PieceBounds(0)
	assert.Equal(t, int64(0), begin)
	assert.Equal(t, int64(512), length)

	begin, length = descr.PieceBounds(1)
	assert.Equal(t, int64(512), begin)
	assert.Equal(t, int64(512), length)

	descr.Length = 1000
	_, length = descr.PieceBounds(1)
	assert.Equal(t, int64(488), length)
}

func TestFromBencodeDataNil(t *testing.T) {
	assert.Nil(t, FromBencodeData(nil))
}

func TestInfoHashDeterministic(t *testing.T) {
	raw := singleFileMetainfo(t)
	d1, err := FromBytes(raw)
	require.NoError(t, err)
	d2, err := FromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, d1.InfoHash, d2.InfoHash)
	assert.Len(t, d1.InfoHashString(), 40)
}
