package session

import (
	"leechtorrent/torrent"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionSendRead(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &Connection{conn: client}

	go func() {
		msg := &torrent.Message{Type: torrent.MsgUnchoke}
		server.Write(msg.Serialize())
	}()

	got, err := c.read()
	require.NoError(t, err)
	assert.Equal(t, torrent.MsgUnchoke, got.Type)
}

func TestConnectionSendRequest(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &Connection{conn: client}
	errCh := make(chan error, 1)
	go func() { errCh <- c.sendRequest(2, 16384, 16384) }()

	buf := make([]byte, 17)
	_, err := server.Read(buf)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	msg, err := torrent.ReadMessage(&sliceReader{buf: buf})
	require.NoError(t, err)
	assert.Equal(t, torrent.MsgRequest, msg.Type)
}

type sliceReader struct {
	buf []byte
	pos int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

func TestConnectionBitfieldAndHave(t *testing.T) {
	c := &Connection{numPiece: 20}
	assert.False(t, c.HasPiece(3))

	c.setBitfield(make(torrent.Bitfield, 3))
	c.bitfield.SetPiece(3)
	assert.True(t, c.HasPiece(3))
	assert.False(t, c.HasPiece(4))

	c2 := &Connection{numPiece: 20}
	c2.setHave(5)
	assert.True(t, c2.HasPiece(5))
	assert.False(t, c2.HasPiece(6))
}
