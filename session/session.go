package session

import (
	"sync"
)

// Session is the shared mutable state every peer worker draws on: the
// work queue of undone pieces, the done-piece counter, and the output
// writer. All three are internally serialised; the Session's own locks
// are never held across the writer's I/O, so queue and counter access
// is not blocked by a commit in progress. The writes themselves are
// serialised by the writer's lock.
type Session struct {
	descrPieces int

	queueMu sync.Mutex
	queue   []*Piece

	doneMu sync.Mutex
	done   int

	writer *PayloadWriter

	downloadedMu sync.Mutex
	downloaded   int64

	// OnCommit, if set, is called with the index of each piece right
	// after it is committed, outside any of the Session's own locks.
	// download.go uses it to mirror per-piece completion into the
	// progress ledger.
	OnCommit func(index int)
}

// New creates a Session with every piece of pieces queued for
// download, writing committed pieces through writer.
func New(pieces []*Piece, writer *PayloadWriter) *Session {
	queue := make([]*Piece, len(pieces))
	copy(queue, pieces)
	return &Session{
		descrPieces: len(pieces),
		queue:       queue,
		writer:      writer,
	}
}

// TakePiece removes and returns the front of the work queue, or nil
// if it is empty.
func (s *Session) TakePiece() *Piece {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	p := s.queue[0]
	s.queue = s.queue[1:]
	return p
}

// ReturnPiece pushes p back onto the work queue. Used when a worker
// gave up on it or the peer didn't have it.
func (s *Session) ReturnPiece(p *Piece) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	s.queue = append(s.queue, p)
}

// Commit writes the verified bytes of p at its absolute offset,
// increments the done-counter and the downloaded-bytes counter, and
// invokes OnCommit if set. Pieces are only ever committed after their
// hash has been checked by the caller.
func (s *Session) Commit(p *Piece, buf []byte) error {
	if err := s.writer.WriteAt(p.Begin, buf); err != nil {
		return err
	}
	s.doneMu.Lock()
	s.done++
	s.doneMu.Unlock()

	s.downloadedMu.Lock()
	s.downloaded += int64(len(buf))
	s.downloadedMu.Unlock()

	if s.OnCommit != nil {
		s.OnCommit(p.Index)
	}
	return nil
}

// IsDone reports whether every piece has been committed.
func (s *Session) IsDone() bool {
	s.doneMu.Lock()
	defer s.doneMu.Unlock()
	return s.done >= s.descrPieces
}

// Done returns the current done-counter, for progress reporting.
func (s *Session) Done() int {
	s.doneMu.Lock()
	defer s.doneMu.Unlock()
	return s.done
}

// Total returns N, the total piece count.
func (s *Session) Total() int {
	return s.descrPieces
}

// BytesDownloaded returns the total bytes committed so far, the
// counter a tracker re-announce's "downloaded" parameter would report.
func (s *Session) BytesDownloaded() int64 {
	s.downloadedMu.Lock()
	defer s.downloadedMu.Unlock()
	return s.downloaded
}
