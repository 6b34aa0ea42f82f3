package session

import (
	"leechtorrent/torrent"
	"net"
	"time"
)

// Connection is one TCP stream to a peer, owned exclusively by the
// worker that dialed it. Its choked flag and bitfield are never
// shared with another goroutine.
type Connection struct {
	conn     net.Conn
	peer     *torrent.Peer
	choked   bool
	bitfield torrent.Bitfield
	numPiece int
}

// Dial connects to peer and performs the handshake. Connect is
// bounded to 3 s; subsequent reads/writes get their own deadlines per
// call.
func Dial(peer *torrent.Peer, d *torrent.Descriptor, me *torrent.Me) (*Connection, error) {
	raw, err := net.DialTimeout("tcp", peer.String(), 3*time.Second)
	if err != nil {
		return nil, &torrent.HandshakeFailure{Cause: err}
	}

	if _, err := torrent.PerformHandshake(raw, d, me.PeerID); err != nil {
		raw.Close()
		return nil, err
	}

	return &Connection{
		conn:     raw,
		peer:     peer,
		choked:   true,
		numPiece: d.PieceCount(),
	}, nil
}

// Close closes the underlying TCP stream.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// HasPiece reports whether this peer is known to have piece index. A
// peer we've received neither a Bitfield nor a Have from reports false
// for everything, never panics.
func (c *Connection) HasPiece(index int) bool {
	return c.bitfield.HasPiece(index)
}

// setBitfield stores a Bitfield message's payload as the peer's
// have-set.
func (c *Connection) setBitfield(bf torrent.Bitfield) {
	c.bitfield = bf
}

// setHave records a Have message, lazily allocating a zeroed bitfield
// first if none has arrived yet.
func (c *Connection) setHave(index int) {
	if c.bitfield == nil {
		c.bitfield = make(torrent.Bitfield, (c.numPiece+7)/8)
	}
	c.bitfield.SetPiece(index)
}

// send writes msg with a 5 s write deadline.
func (c *Connection) send(msg *torrent.Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write(msg.Serialize()); err != nil {
		return &IoError{Cause: err}
	}
	return nil
}

// read reads the next message with a 30 s read deadline.
func (c *Connection) read() (*torrent.Message, error) {
	c.conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	msg, err := torrent.ReadMessage(c.conn)
	if err != nil {
		if _, isProtocolErr := err.(*torrent.ProtocolError); isProtocolErr {
			return nil, err
		}
		return nil, &IoError{Cause: err}
	}
	return msg, nil
}

// sendRequest sends a Request message for one block of piece index.
func (c *Connection) sendRequest(index int, begin, length int64) error {
	payload := torrent.FormatRequest(uint32(index), uint32(begin), uint32(length))
	return c.send(&torrent.Message{Type: torrent.MsgRequest, Payload: payload})
}
