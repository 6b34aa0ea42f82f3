// Package session implements the concurrent piece-download engine
// that sits between the peer-wire protocol and the file system: the
// shared work queue and done-counter, the per-connection worker state
// machine, and the block-pipelining request strategy.
package session

import (
	"crypto/sha1"
	"leechtorrent/torrent"
)

// Piece is one unit of the work queue: its index, its absolute byte
// range within the payload, and its declared hash. A Piece exists in
// exactly one place at a time: the queue, a worker's in-flight slot,
// or committed.
type Piece struct {
	Index  int
	Begin  int64
	Length int64
	Hash   [20]byte
}

// PiecesFor partitions d's payload into its ordered Piece set. Every
// piece has length d.PieceLength except the last, which is shortened
// to fit d.Length exactly.
func PiecesFor(d *torrent.Descriptor) []*Piece {
	pieces := make([]*Piece, d.PieceCount())
	for i := range pieces {
		begin, length := d.PieceBounds(i)
		pieces[i] = &Piece{
			Index:  i,
			Begin:  begin,
			Length: length,
			Hash:   d.Pieces[i],
		}
	}
	return pieces
}

// block is one pipelined request/response unit within a piece.
type block struct {
	begin  int64
	length int64
}

// blocksFor splits a piece of the given length into its ordered block
// set: offsets 0, BlockSize, 2*BlockSize, ..., with the last block
// shortened to fit.
func blocksFor(length int64) []block {
	blocks := make([]block, 0, (length+torrent.BlockSize-1)/torrent.BlockSize)
	for begin := int64(0); begin < length; begin += torrent.BlockSize {
		blockLength := int64(torrent.BlockSize)
		if begin+blockLength > length {
			blockLength = length - begin
		}
		blocks = append(blocks, block{begin: begin, length: blockLength})
	}
	return blocks
}

// checkIntegrity reports whether buf hashes to p's declared SHA-1.
func checkIntegrity(p *Piece, buf []byte) bool {
	return sha1.Sum(buf) == p.Hash
}
