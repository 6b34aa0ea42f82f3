package torrent

import (
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
)

// Peer is one swarm member as reported by the tracker: an IPv4
// address and port.
type Peer struct {
	IP   string
	Port uint16
}

// String renders the peer as host:port, the dial target and the log
// key used throughout the session.
func (p *Peer) String() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Me is this client's own identity: a random 20-byte peer-id and the
// listening port advertised to trackers (always 6881; this client
// never actually listens, being leech-only).
type Me struct {
	PeerID [20]byte
	IP     string
	Port   uint16
}

// NewMe builds this run's identity: a fresh random peer-id and a
// best-effort external IP lookup, used to drop this client's own
// address from a tracker's peer list.
func NewMe(port uint16) *Me {
	var id [20]byte
	rand.Read(id[:])
	return &Me{
		PeerID: id,
		IP:     externalIP(),
		Port:   port,
	}
}

func externalIP() string {
	resp, err := http.Get("https://api.ipify.org/")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(body)
}
