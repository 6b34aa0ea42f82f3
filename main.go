package main

import (
	"leechtorrent/config"
	"leechtorrent/db"
	"leechtorrent/torrent"
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
)

const VERSION = "0.1.0"

var CLI struct {
	Verify struct {
		Torrent     string `arg:"" help:"Torrent file to verify." type:"existingfile"`
		ContentPath string `arg:"" optional:"" help:"Path to the content files." type:"existingdir"`
	} `cmd:"" help:"Verify a torrent file against its hashes."`
	Download struct {
		Torrent string `arg:"" help:"Torrent file to download." type:"existingfile"`
		OutDir  string `arg:"" optional:"" help:"Directory to write the payload into, overriding DOWNLOAD_DIR."`
	} `cmd:"" help:"Download a torrent's payload from the swarm."`
}
var mainDB *db.Database

func main() {
	println("leechtorrent v" + VERSION)
	initConfig()
	initLogging()
	defer shutdownLogging()
	ctx := kong.Parse(&CLI)
	cmd := ctx.Command()
	switch cmd {
	case "verify <torrent> <content-path>":
		descr, err := loadDescriptor(CLI.Verify.Torrent)
		if err != nil {
			log.Error().Err(err).Msg("Error loading torrent")
			return
		}
		if err := torrent.Verify(descr, CLI.Verify.ContentPath); err != nil {
			log.Error().Err(err).Msg("Error verifying torrent")
			return
		}
		println("Torrent verified successfully.")
	case "download <torrent>", "download <torrent> <out-dir>":
		initDB()
		err := DownloadTorrent(CLI.Download.Torrent, CLI.Download.OutDir)
		if err != nil {
			log.Error().Err(err).Msg("Error downloading torrent")
			return
		}
	default:
		ctx.PrintUsage(false)
	}

}

func loadDescriptor(path string) (*torrent.Descriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return torrent.FromBytes(content)
}

func initConfig() {
	// create the cache directory
	if err := os.MkdirAll(config.Main.CacheDir, os.ModePerm); err != nil {
		log.Fatal().Err(err).Str("path", config.Main.CacheDir).Msg("Failed to create cache directory")
	}

	// create the download directory
	if err := os.MkdirAll(config.Main.DownloadDir, os.ModePerm); err != nil {
		log.Fatal().Err(err).Str("path", config.Main.DownloadDir).Msg("Failed to create download directory")
	}
}

func initDB() {
	var err error
	mainDB, err = db.Init()
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
}
