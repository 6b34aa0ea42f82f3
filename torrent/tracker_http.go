package torrent

import (
	"fmt"
	"leechtorrent/bencode"
	"time"

	"github.com/go-resty/resty/v2"
)

// httpTracker announces over a single HTTP(S) GET.
type httpTracker struct {
	announceURL string
	seeders     int
	leechers    int
}

// NewHTTPTracker builds a Tracker that announces to announce over
// HTTP(S).
func NewHTTPTracker(announce string) Tracker {
	return &httpTracker{announceURL: announce}
}

func (t *httpTracker) Announce() string { return t.announceURL }
func (t *httpTracker) Seeders() int     { return t.seeders }
func (t *httpTracker) Leechers() int    { return t.leechers }

// GetPeers performs a single tracker announce GET and decodes its
// bencoded response into a peer list.
func (t *httpTracker) GetPeers(d *Descriptor, me *Me) ([]*Peer, error) {
	cli := resty.New().SetTimeout(15 * time.Second)

	resp, err := cli.R().
		SetQueryParam("info_hash", string(d.InfoHash[:])).
		SetQueryParam("peer_id", string(me.PeerID[:])).
		SetQueryParam("port", fmt.Sprintf("%d", me.Port)).
		SetQueryParam("uploaded", "0").
		SetQueryParam("downloaded", "0").
		SetQueryParam("left", fmt.Sprintf("%d", d.Length)).
		SetQueryParam("compact", "1").
		Get(t.announceURL)
	if err != nil {
		return nil, &TrackerError{Cause: err}
	}
	if resp.StatusCode() != 200 {
		return nil, &TrackerError{Cause: fmt.Errorf("status code %d: %s", resp.StatusCode(), resp.String())}
	}

	response, _, err := bencode.Decode(resp.Body())
	if err != nil {
		return nil, &TrackerError{Cause: fmt.Errorf("decoding response: %w", err)}
	}
	respDict := response.AsDict()

	if failureReason, ok := respDict["failure reason"]; ok {
		return nil, &TrackerError{Cause: fmt.Errorf("%s", failureReason.AsString())}
	}

	if complete, ok := respDict["complete"]; ok {
		t.seeders = int(complete.AsInt())
	}
	if incomplete, ok := respDict["incomplete"]; ok {
		t.leechers = int(incomplete.AsInt())
	}

	peers := make([]*Peer, 0)
	peersField, ok := respDict["peers"]
	if !ok {
		return peers, nil
	}

	switch peersField.Type {
	case bencode.STRING:
		raw := peersField.AsBytes()
		for i := 0; i+6 <= len(raw); i += 6 {
			peers = append(peers, &Peer{
				IP:   fmt.Sprintf("%d.%d.%d.%d", raw[i], raw[i+1], raw[i+2], raw[i+3]),
				Port: uint16(raw[i+4])<<8 | uint16(raw[i+5]),
			})
		}
	case bencode.LIST:
		for _, peerData := range peersField.AsList() {
			peerDict := peerData.AsDict()
			peers = append(peers, &Peer{
				IP:   peerDict["ip"].AsString(),
				Port: uint16(peerDict["port"].AsInt()),
			})
		}
	}

	return peers, nil
}
