package torrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerAcceptsHTTP(t *testing.T) {
	tr, err := NewTracker("http://tracker.example/announce")
	require.NoError(t, err)
	assert.Equal(t, "http://tracker.example/announce", tr.Announce())
}

func TestNewTrackerAcceptsHTTPS(t *testing.T) {
	tr, err := NewTracker("https://tracker.example/announce")
	require.NoError(t, err)
	assert.Equal(t, "https://tracker.example/announce", tr.Announce())
}

func TestNewTrackerRejectsUDP(t *testing.T) {
	_, err := NewTracker("udp://tracker.example:80/announce")
	require.Error(t, err)
	var te *TrackerError
	assert.ErrorAs(t, err, &te)
}
