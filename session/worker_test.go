package session

import (
	"crypto/sha1"
	"encoding/binary"
	"leechtorrent/torrent"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePeer serves the minimal wire protocol a Worker expects after the
// handshake: it advertises every piece, unchokes once it sees
// Interested, and answers every Request with the matching Piece
// message built from pieceData.
func fakePeer(t *testing.T, conn net.Conn, pieceData map[int][]byte, numPieces int) {
	t.Helper()

	bf := make(torrent.Bitfield, (numPieces+7)/8)
	for i := 0; i < numPieces; i++ {
		bf.SetPiece(i)
	}
	write := func(msg *torrent.Message) {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if _, err := conn.Write(msg.Serialize()); err != nil {
			return
		}
	}
	write(&torrent.Message{Type: torrent.MsgBitfield, Payload: bf})

	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		msg, err := torrent.ReadMessage(conn)
		if err != nil {
			return
		}
		switch msg.Type {
		case torrent.MsgUnchoke:
			// no response needed
		case torrent.MsgInterested:
			write(&torrent.Message{Type: torrent.MsgUnchoke})
		case torrent.MsgRequest:
			index := binary.BigEndian.Uint32(msg.Payload[0:4])
			begin := binary.BigEndian.Uint32(msg.Payload[4:8])
			length := binary.BigEndian.Uint32(msg.Payload[8:12])

			full := pieceData[int(index)]
			block := full[begin : begin+length]
			payload := make([]byte, 8+len(block))
			binary.BigEndian.PutUint32(payload[0:4], index)
			binary.BigEndian.PutUint32(payload[4:8], begin)
			copy(payload[8:], block)
			write(&torrent.Message{Type: torrent.MsgPiece, Payload: payload})
		}
	}
}

func TestWorkerDownloadsAllPieces(t *testing.T) {
	dir := t.TempDir()
	pieceContent := []byte("0123456789abcdef") // 16 bytes, one block
	descr := &torrent.Descriptor{
		Name:        "file.bin",
		Length:      int64(len(pieceContent) * 2),
		PieceLength: int64(len(pieceContent)),
		FileList: []*torrent.File{
			{Length: int64(len(pieceContent) * 2), Path: "file.bin", Offset: 0},
		},
		Pieces: make([][20]byte, 2),
	}
	pieces := PiecesFor(descr)
	raw := map[int][]byte{
		0: pieceContent,
		1: pieceContent,
	}
	for i, p := range pieces {
		p.Hash = sha1.Sum(raw[i])
	}

	writer, err := OpenPayloadWriter(descr, dir)
	require.NoError(t, err)
	defer writer.Close()
	sess := New(pieces, writer)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	go fakePeer(t, serverConn, raw, descr.PieceCount())

	c := &Connection{conn: clientConn, peer: &torrent.Peer{IP: "test", Port: 1}, numPiece: descr.PieceCount(), choked: true}
	w := NewWorker(c, sess)

	done := make(chan error, 1)
	go func() { done <- w.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish in time")
	}

	require.True(t, sess.IsDone())
}
