package session

import (
	"leechtorrent/torrent"
	"time"

	"github.com/rs/zerolog/log"
)

// pieceSkipBackoff is how long a worker sleeps after discovering its
// peer lacks the piece it was just handed, before taking the next one
// off the queue. Without it, a peer with a sparse have-set and no
// other work available spins the queue at full CPU.
const pieceSkipBackoff = 20 * time.Millisecond

// Worker owns one Connection and repeatedly pulls pieces from the
// shared Session until the download completes, the queue drains, or
// an unrecoverable error ends the connection.
type Worker struct {
	conn *Connection
	sess *Session
}

// NewWorker pairs a freshly handshaken Connection with the shared
// Session.
func NewWorker(conn *Connection, sess *Session) *Worker {
	return &Worker{conn: conn, sess: sess}
}

// Run executes the bootstrap phase followed by the download phase. It
// never returns an error for ordinary exhaustion of the queue or
// completion of the download, only for a connection-ending failure.
func (w *Worker) Run() error {
	if err := w.bootstrap(); err != nil {
		return err
	}
	return w.downloadLoop()
}

// bootstrap reads messages until Unchoke is observed, populating the
// peer's bitfield along the way.
func (w *Worker) bootstrap() error {
	for {
		msg, err := w.conn.read()
		if err != nil {
			return err
		}

		switch msg.Type {
		case torrent.MsgBitfield:
			w.conn.setBitfield(torrent.Bitfield(msg.Payload))
			log.Debug().Str("peer", w.conn.peer.String()).Msg("received bitfield")
			if err := w.conn.send(&torrent.Message{Type: torrent.MsgUnchoke}); err != nil {
				return err
			}
			if err := w.conn.send(&torrent.Message{Type: torrent.MsgInterested}); err != nil {
				return err
			}
		case torrent.MsgHave:
			index, err := torrent.ParseHave(msg.Payload)
			if err != nil {
				return err
			}
			w.conn.setHave(int(index))
		case torrent.MsgUnchoke:
			w.conn.choked = false
			log.Debug().Str("peer", w.conn.peer.String()).Msg("unchoked, entering download phase")
			return nil
		case torrent.MsgChoke:
			w.conn.choked = true
		default:
			// KeepAlive and anything else: keep waiting for Unchoke.
		}
	}
}

// downloadLoop repeatedly takes a piece from the session, downloads
// and verifies it, and commits it, until the session is done or the
// queue is exhausted.
func (w *Worker) downloadLoop() error {
	for !w.sess.IsDone() {
		p := w.sess.TakePiece()
		if p == nil {
			return nil
		}

		if !w.conn.HasPiece(p.Index) {
			w.sess.ReturnPiece(p)
			time.Sleep(pieceSkipBackoff)
			continue
		}

		buf, err := w.tryDownloadPiece(p)
		if err != nil {
			w.sess.ReturnPiece(p)
			log.Warn().Err(err).Str("peer", w.conn.peer.String()).Int("piece", p.Index).Msg("piece download failed, worker exiting")
			return err
		}

		if err := w.sess.Commit(p, buf); err != nil {
			return &IoError{Cause: err}
		}
		log.Info().Str("peer", w.conn.peer.String()).Int("piece", p.Index).Int("done", w.sess.Done()).Int("total", w.sess.Total()).Msg("piece committed")
	}
	return nil
}

// tryDownloadPiece runs the block-pipelining loop for one piece: up
// to MaxBacklog outstanding requests, blocks of at most BlockSize
// bytes, accepting late block arrivals even across a Choke. It
// returns the assembled and verified piece bytes.
func (w *Worker) tryDownloadPiece(p *Piece) ([]byte, error) {
	buf := make([]byte, p.Length)
	pending := blocksFor(p.Length)
	inflight := make(map[int64]block, torrent.MaxBacklog)

	for len(pending) > 0 || len(inflight) > 0 {
		for !w.conn.choked && len(inflight) < torrent.MaxBacklog && len(pending) > 0 {
			b := pending[0]
			pending = pending[1:]
			if err := w.conn.sendRequest(p.Index, b.begin, b.length); err != nil {
				return nil, err
			}
			inflight[b.begin] = b
		}

		msg, err := w.conn.read()
		if err != nil {
			return nil, err
		}

		switch msg.Type {
		case torrent.MsgPiece:
			index, begin, data, err := torrent.ParsePiece(msg.Payload)
			if err != nil {
				return nil, err
			}
			if int(index) != p.Index {
				continue
			}
			b, ok := inflight[int64(begin)]
			if !ok {
				continue
			}
			copy(buf[begin:int64(begin)+b.length], data)
			delete(inflight, int64(begin))
		case torrent.MsgHave:
			index, err := torrent.ParseHave(msg.Payload)
			if err != nil {
				return nil, err
			}
			w.conn.setHave(int(index))
		case torrent.MsgChoke:
			w.conn.choked = true
		case torrent.MsgUnchoke:
			w.conn.choked = false
		default:
			// Interested/NotInterested/Cancel/KeepAlive: irrelevant to a
			// leech-only client mid-piece.
		}
	}

	if !checkIntegrity(p, buf) {
		return nil, &HashMismatch{Index: p.Index}
	}
	return buf, nil
}
