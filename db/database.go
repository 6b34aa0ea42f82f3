package db

import (
	"encoding/hex"
	"leechtorrent/config"
	"leechtorrent/db/models"
	"leechtorrent/torrent"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func Init() (*Database, error) {
	db, err := gorm.Open(sqlite.Open(config.Main.DB.Path), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	err = db.AutoMigrate(&models.Download{}, &models.Peer{}, &models.Piece{}, &models.Tracker{})
	if err != nil {
		log.Fatal(err)
	}

	return &Database{
		db: db,
	}, nil
}

func (d *Database) Close() {
	sqlDB, err := d.db.DB()
	if err != nil {
		log.Fatal(err)
	}
	sqlDB.Close()
}

// CreateDownload returns the ledger row for d's info-hash, creating it
// (along with one Piece row per piece and one Tracker row per
// announce URL) the first time a torrent is seen.
func (d *Database) CreateDownload(descr *torrent.Descriptor, torrentPath string) (*models.Download, error) {
	download := &models.Download{}
	tx := d.db.Where("info_hash = ?", descr.InfoHashString()).First(download)
	if tx.Error == nil {
		goto fillup
	}

	download = &models.Download{
		InfoHash:        descr.InfoHashString(),
		Name:            descr.Name,
		TorrentFilename: torrentPath,
		Status:          models.Downloading,
		DownloadDir:     config.Main.DownloadDir,
		TotalSize:       descr.Length,
	}

	if err := d.db.Create(download).Error; err != nil {
		return nil, err
	}

	for i, pieceHash := range descr.Pieces {
		piece := &models.Piece{
			DownloadID: download.ID,
			Index:      i,
			Hash:       hex.EncodeToString(pieceHash[:]),
		}
		if err := d.db.Create(piece).Error; err != nil {
			return nil, err
		}
	}

	for _, announce := range descr.AnnounceList {
		tracker := &models.Tracker{
			DownloadID: download.ID,
			Announce:   announce,
			Status:     models.TrackerAnnouncing,
		}
		if err := d.db.Create(tracker).Error; err != nil {
			return nil, err
		}
	}

fillup:
	result := d.db.Preload("Trackers").Preload("Pieces").First(download)
	if result.Error != nil {
		return nil, result.Error
	}
	return download, nil
}

func (d *Database) UpdateTracker(tracker *models.Tracker) error {
	return d.db.Save(tracker).Error
}

func (d *Database) CreatePeers(tracker *models.Tracker, peers []*torrent.Peer) error {
	for _, peer := range peers {
		err := d.CreatePeer(tracker, peer)
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Database) CreatePeer(tracker *models.Tracker, peer *torrent.Peer) error {
	newPeer := &models.Peer{
		DownloadID: tracker.DownloadID,
		TrackerID:  tracker.ID,
		IP:         peer.IP,
		Port:       peer.Port,
	}
	// if a peer with the same trackerID, IP and Port already exists, update it, otherwise create a new one
	existingPeer := &models.Peer{}
	result := d.db.Where("tracker_id = ? AND ip = ? AND port = ?", tracker.ID, peer.IP, peer.Port).First(existingPeer)
	if result.Error == nil {
		newPeer.ID = existingPeer.ID
		result = d.db.Save(newPeer)
		return result.Error
	} else {
		result = d.db.Create(newPeer)
		return result.Error
	}
}
