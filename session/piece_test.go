package session

import (
	"crypto/sha1"
	"leechtorrent/torrent"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPiecesForPartitionsPayload(t *testing.T) {
	descr := &torrent.Descriptor{
		Length:      1000,
		PieceLength: 400,
		Pieces:      make([][20]byte, 3),
	}
	pieces := PiecesFor(descr)
	require := assert.New(t)
	require.Len(pieces, 3)
	require.Equal(int64(0), pieces[0].Begin)
	require.Equal(int64(400), pieces[0].Length)
	require.Equal(int64(400), pieces[1].Begin)
	require.Equal(int64(400), pieces[1].Length)
	require.Equal(int64(800), pieces[2].Begin)
	require.Equal(int64(200), pieces[2].Length)
}

func TestBlocksForSplitsIntoBlockSizeChunks(t *testing.T) {
	blocks := blocksFor(torrent.BlockSize*2 + 100)
	assert.Len(t, blocks, 3)
	assert.Equal(t, int64(0), blocks[0].begin)
	assert.Equal(t, int64(torrent.BlockSize), blocks[0].length)
	assert.Equal(t, int64(torrent.BlockSize), blocks[1].begin)
	assert.Equal(t, int64(torrent.BlockSize), blocks[1].length)
	assert.Equal(t, int64(torrent.BlockSize*2), blocks[2].begin)
	assert.Equal(t, int64(100), blocks[2].length)
}

func TestBlocksForExactMultiple(t *testing.T) {
	blocks := blocksFor(torrent.BlockSize * 2)
	assert.Len(t, blocks, 2)
}

func TestCheckIntegrity(t *testing.T) {
	buf := []byte("the quick brown fox")
	p := &Piece{Hash: sha1.Sum(buf)}
	assert.True(t, checkIntegrity(p, buf))

	p.Hash[0] ^= 0xFF
	assert.False(t, checkIntegrity(p, buf))
}
