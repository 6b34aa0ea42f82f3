package torrent

import (
	"fmt"
	"net/url"
)

// Tracker is one announce endpoint: it turns our own identity into a
// list of swarm peers. Seeders/leechers counters are exposed for the
// progress ledger only; they don't influence download behavior.
type Tracker interface {
	GetPeers(d *Descriptor, me *Me) ([]*Peer, error)
	Announce() string
	Seeders() int
	Leechers() int
}

// NewTracker builds a Tracker for the given announce URL. Only
// HTTP(S) trackers are supported.
func NewTracker(announce string) (Tracker, error) {
	u, err := url.Parse(announce)
	if err != nil {
		return nil, &TrackerError{Cause: err}
	}
	switch u.Scheme {
	case "http", "https", "":
		return NewHTTPTracker(announce), nil
	default:
		return nil, &TrackerError{Cause: fmt.Errorf("unsupported tracker protocol: %s", u.Scheme)}
	}
}
