// Package main provides the player entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/thedrop-audio/thedrop/internal/app/engine"
	"github.com/thedrop-audio/thedrop/internal/app/ingest"
	"github.com/thedrop-audio/thedrop/internal/app/store"
	"github.com/thedrop-audio/thedrop/internal/domain/track"
	"github.com/thedrop-audio/thedrop/internal/infra/config"
	"github.com/thedrop-audio/thedrop/internal/infra/logger"
	"github.com/thedrop-audio/thedrop/internal/infra/persist"
	"github.com/thedrop-audio/thedrop/internal/infra/vault"
)

const snapshotKey = "library"

var (
	app        = kingpin.New("thedrop", "The Drop music player")
	configPath = app.Flag("config", "Path to config file").Default("config/player.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	importCmd  = app.Command("import", "Import audio files into the library and exit")
	importPath = importCmd.Arg("path", "File or directory to import").Required().String()
)

func init() {
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg, command == importCmd.FullCommand()); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run wires the store, persistence, devices and command loop. A separate
// function ensures defers execute even when returning with an error.
func run(cfg *config.Config, importOnly bool) error {
	fs := afero.NewOsFs()

	kv := persist.New(fs, cfg.Library.DataDir, cfg.Library.Namespace)
	st := store.New()
	parser := ingest.New(fs)

	restoreLibrary(st, kv, fs, cfg)

	if importOnly {
		importIntoStore(st, parser, fs, *importPath)
		return kv.Save(snapshotKey, st.Snapshot())
	}

	ctx := context.Background()

	var resolver engine.Resolver
	var vaultClient *vault.Client
	if cfg.Vault.Enabled {
		vcfg, err := vault.FromSettings(cfg.Vault.Settings)
		if err != nil {
			return err
		}
		vaultClient, err = vault.New(ctx, vcfg)
		if err != nil {
			// Streaming is optional; local playback stays available.
			zlog.Warn().Err(err).Msg("vault unavailable, remote streaming disabled")
		} else {
			resolver = vaultClient
		}
	}

	if cfg.Library.ImportDir != "" {
		importIntoStore(st, parser, fs, cfg.Library.ImportDir)
	}

	eng := engine.New(st, engine.NewClockDevice(), resolver)
	eng.Start()
	defer eng.Stop()

	repl(ctx, st, eng, parser, fs, vaultClient)

	if err := kv.Save(snapshotKey, st.Snapshot()); err != nil {
		zlog.Warn().Err(err).Msg("failed to persist library snapshot")
	}
	return nil
}

// restoreLibrary seeds the store with the configured player preferences and
// then loads the persisted snapshot over them, so a restored snapshot's
// volume and rate win and the config values only apply on a fresh start.
func restoreLibrary(st *store.Store, kv *persist.KV, fs afero.Fs, cfg *config.Config) {
	st.SetVolume(cfg.Player.Volume)
	st.SetRate(cfg.Player.Rate)

	var snap store.Snapshot
	if ok, err := kv.Load(snapshotKey, &snap); err != nil {
		zlog.Warn().Err(err).Msg("snapshot unreadable, starting with an empty library")
	} else if ok {
		st.Restore(snap, func(path string) bool {
			exists, _ := afero.Exists(fs, path)
			return exists
		})
		zlog.Info().Int("tracks", st.TrackCount()).Msg("library restored")
	}
}

func importIntoStore(st *store.Store, parser *ingest.Parser, fs afero.Fs, path string) {
	info, err := fs.Stat(path)
	if err != nil {
		zlog.Warn().Err(err).Str("path", path).Msg("import path unreadable")
		return
	}
	if info.IsDir() {
		added := parser.ParseDir(path)
		st.AddTracks(added)
		zlog.Info().Int("tracks", len(added)).Str("dir", path).Msg("imported")
		return
	}
	if !ingest.Supported(path) {
		zlog.Warn().Str("path", path).Msg("unsupported file type")
		return
	}
	st.AddTracks([]track.Entry{parser.ParseFile(path)})
	zlog.Info().Str("file", path).Msg("imported")
}
