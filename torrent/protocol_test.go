package torrent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeRoundTrip(t *testing.T) {
	var infoHash, peerID [20]byte
	copy(infoHash[:], "aaaaaaaaaaaaaaaaaaaa")
	copy(peerID[:], "bbbbbbbbbbbbbbbbbbbb")

	h := NewHandshake(infoHash, peerID)
	buf := h.Serialize()
	assert.Len(t, buf, 49+len(ProtocolIdentifier))

	parsed, err := ReadHandshake(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, ProtocolIdentifier, parsed.Pstr)
	assert.Equal(t, infoHash, parsed.InfoHash)
	assert.Equal(t, peerID, parsed.PeerID)
}

func TestReadHandshakeZeroPstrlen(t *testing.T) {
	_, err := ReadHandshake(bytes.NewReader([]byte{0}))
	require.Error(t, err)
	var hf *HandshakeFailure
	assert.ErrorAs(t, err, &hf)
}

func TestMessageSerializeRoundTrip(t *testing.T) {
	msg := &Message{Type: MsgRequest, Payload: FormatRequest(3, 16384, 16384)}
	buf := msg.Serialize()

	parsed, err := ReadMessage(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, MsgRequest, parsed.Type)

	gotIndex, gotBegin, data, err := ParsePiece(append([]byte{0, 0, 0, 3, 0, 0, 64, 0}, []byte("abcd")...))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), gotIndex)
	assert.Equal(t, uint32(16384), gotBegin)
	assert.Equal(t, []byte("abcd"), data)
}

func TestKeepAliveRoundTrip(t *testing.T) {
	msg := &Message{Type: MsgKeepAlive}
	buf := msg.Serialize()
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)

	parsed, err := ReadMessage(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, MsgKeepAlive, parsed.Type)
}

func TestReadMessageUnknownID(t *testing.T) {
	frame := []byte{0, 0, 0, 1, 200}
	_, err := ReadMessage(bytes.NewReader(frame))
	require.Error(t, err)
	var pe *ProtocolError
	assert.ErrorAs(t, err, &pe)
}

func TestParseHaveInvalidLength(t *testing.T) {
	_, err := ParseHave([]byte{0, 0, 1})
	require.Error(t, err)
}

func TestBitfieldHasPieceAndSetPiece(t *testing.T) {
	bf := make(Bitfield, 2)
	assert.False(t, bf.HasPiece(0))
	bf.SetPiece(0)
	assert.True(t, bf.HasPiece(0))
	assert.False(t, bf.HasPiece(1))

	bf.SetPiece(15)
	assert.True(t, bf.HasPiece(15))
}

func TestBitfieldNilIsSafe(t *testing.T) {
	var bf Bitfield
	assert.False(t, bf.HasPiece(0))
	assert.False(t, bf.HasPiece(1000))
	bf.SetPiece(5) // must not panic
}

func TestBitfieldOutOfRangeIsSafe(t *testing.T) {
	bf := make(Bitfield, 1)
	assert.False(t, bf.HasPiece(100))
	bf.SetPiece(100) // must not panic, no-op
}
