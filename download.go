package main

import (
	"fmt"
	"leechtorrent/config"
	"leechtorrent/db/models"
	"leechtorrent/session"
	"leechtorrent/torrent"
	"leechtorrent/utils"
	"path/filepath"
	"sync"
	"time"

	"os"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// DownloadTorrent initiates the download of content defined in a torrent file.
// It reads the torrent file, parses its contents, copies it to the cache directory,
// creates a database entry for the download, contacts trackers to find peers, and
// drives the piece-download engine to completion.
// Parameters:
//   - torrentFile: Path to the .torrent file to be downloaded
//   - outDir: Directory to write the payload into; empty uses DOWNLOAD_DIR
//
// Returns an error if any step of the process fails, or nil on success.
func DownloadTorrent(torrentFile, outDir string) error {
	log.Info().Msg("Downloading torrent: " + torrentFile)

	content, err := os.ReadFile(torrentFile)
	if err != nil {
		return err
	}
	descr, err := torrent.FromBytes(content)
	if err != nil {
		return err
	}

	torrentFilename := filepath.Base(torrentFile)
	cachePath := filepath.Join(config.Main.CacheDir, torrentFilename)
	if err := utils.CopyFile(torrentFile, cachePath); err != nil {
		return err
	}

	dlModel, err := mainDB.CreateDownload(descr, cachePath)
	if err != nil {
		return err
	}

	downloadPath := config.Main.DownloadDir
	if outDir != "" {
		downloadPath = outDir
	}
	if err := os.MkdirAll(downloadPath, os.ModePerm); err != nil {
		dlModel.Status = models.DownloadError
		dlModel.LastError = fmt.Sprintf("Failed to create download directory: %s", err.Error())
		mainDB.UpdateDownload(dlModel)
		return err
	}

	// Pre-allocate the payload at startup, before the tracker is even
	// contacted, so the zero-filled file exists regardless of whether
	// any peer is ever found.
	writer, err := session.OpenPayloadWriter(descr, downloadPath)
	if err != nil {
		dlModel.Status = models.DownloadError
		dlModel.LastError = fmt.Sprintf("Failed to open payload writer: %s", err.Error())
		mainDB.UpdateDownload(dlModel)
		return err
	}
	defer writer.Close()

	trackers := make([]torrent.Tracker, 0)
	for _, announce := range descr.AnnounceList {
		tracker, err := torrent.NewTracker(announce)
		if err != nil {
			log.Warn().Err(err).Str("tracker", announce).Msg("Failed to create tracker, skipping")
			continue
		}
		trackers = append(trackers, tracker)
	}
	if len(trackers) == 0 {
		return fmt.Errorf("no valid trackers found")
	}

	me := torrent.NewMe(6881)
	peers := make(map[string]*torrent.Peer)
	var peersMu sync.Mutex

	wg := sync.WaitGroup{}
	for _, tracker := range trackers {
		wg.Add(1)
		go func(tr torrent.Tracker) {
			defer wg.Done()
			log.Info().Msg("Getting peers from tracker: " + tr.Announce())
			var trackerModel *models.Tracker
			for i := range dlModel.Trackers {
				if dlModel.Trackers[i].Announce == tr.Announce() {
					trackerModel = &dlModel.Trackers[i]
					break
				}
			}
			if trackerModel == nil {
				log.Error().Str("tracker", tr.Announce()).Msg("no ledger row for tracker, skipping")
				return
			}

			tPeers, err := tr.GetPeers(descr, me)
			if err != nil {
				log.Error().Err(err).Msg("Error getting peers from tracker")
				trackerModel.Status = models.TrackerError
				trackerModel.LastError = err.Error()
				mainDB.UpdateTracker(trackerModel)
				return
			}
			log.Info().Msgf("Got %d peers from tracker", len(tPeers))
			trackerModel.Status = models.TrackerComplete
			trackerModel.Seeders = tr.Seeders()
			trackerModel.Leechers = tr.Leechers()

			newPeers := make([]*torrent.Peer, 0, len(tPeers))
			peersMu.Lock()
			for _, peer := range tPeers {
				if peer.String() == fmt.Sprintf("%s:%d", me.IP, me.Port) || peer.IP == "0.0.0.0" {
					continue
				}
				if _, ok := peers[peer.String()]; !ok {
					peers[peer.String()] = peer
					newPeers = append(newPeers, peer)
				}
			}
			peersMu.Unlock()

			if err := mainDB.CreatePeers(trackerModel, newPeers); err != nil {
				log.Warn().Err(err).Str("tracker", tr.Announce()).Msg("failed to record peers in ledger")
			}

			trackerModel.LastCheck = time.Now().Unix()
			mainDB.UpdateTracker(trackerModel)
		}(tracker)
	}
	wg.Wait()

	dlModel.Status = models.DownloadInProgress
	mainDB.UpdateDownload(dlModel)

	log.Info().Msgf("Found %d peers for download", len(peers))
	if len(peers) == 0 {
		log.Warn().Msg("No peers found for download")
		return nil
	}

	log.Info().Msg("Starting download of pieces")
	if err := runSession(descr, peers, me, writer, dlModel); err != nil {
		dlModel.Status = models.DownloadError
		dlModel.LastError = err.Error()
		mainDB.UpdateDownload(dlModel)
		return err
	}

	dlModel.Status = models.DownloadComplete
	dlModel.Progress = 100
	dlModel.CompletedAt = time.Now().Unix()
	mainDB.UpdateDownload(dlModel)
	log.Info().Msg("Download completed successfully")

	return nil
}

// runSession builds the piece work queue, dials every discovered peer,
// and spawns one worker per successful connection against the given
// (already pre-allocated) writer. It blocks until every piece has been
// committed or every worker has exited.
func runSession(descr *torrent.Descriptor, peers map[string]*torrent.Peer, me *torrent.Me, writer *session.PayloadWriter, dlModel *models.Download) error {
	pieces := session.PiecesFor(descr)
	sess := session.New(pieces, writer)

	pieceRows := make(map[int]*models.Piece, len(dlModel.Pieces))
	for i := range dlModel.Pieces {
		pieceRows[dlModel.Pieces[i].Index] = &dlModel.Pieces[i]
	}
	sess.OnCommit = func(index int) {
		row, ok := pieceRows[index]
		if !ok {
			return
		}
		row.IsDownloaded = true
		if err := mainDB.UpdatePiece(row); err != nil {
			log.Warn().Err(err).Int("piece", index).Msg("failed to update piece ledger row")
		}
	}

	bar := progressbar.NewOptions(sess.Total(),
		progressbar.OptionSetDescription(descr.Name),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
	)

	var wg sync.WaitGroup
	for _, peer := range peers {
		conn, err := session.Dial(peer, descr, me)
		if err != nil {
			log.Debug().Err(err).Str("peer", peer.String()).Msg("dial/handshake failed, skipping peer")
			continue
		}

		wg.Add(1)
		go func(c *session.Connection) {
			defer wg.Done()
			defer c.Close()

			w := session.NewWorker(c, sess)
			if err := w.Run(); err != nil {
				log.Debug().Err(err).Msg("worker exited")
			}
		}(conn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			bar.Set(sess.Done())
			if !sess.IsDone() {
				return fmt.Errorf("download incomplete - no peers left with needed pieces (%d/%d pieces)", sess.Done(), sess.Total())
			}
			return nil
		case <-ticker.C:
			bar.Set(sess.Done())
			dlModel.Progress = int(float64(sess.Done()) / float64(sess.Total()) * 100.0)
			mainDB.UpdateDownload(dlModel)
			log.Debug().Str("downloaded", utils.FormatBytes(sess.BytesDownloaded())).Msg("download progress")
		}
	}
}
