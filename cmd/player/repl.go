package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/thedrop-audio/thedrop/internal/app/engine"
	"github.com/thedrop-audio/thedrop/internal/app/ingest"
	"github.com/thedrop-audio/thedrop/internal/app/store"
	"github.com/thedrop-audio/thedrop/internal/infra/vault"
)

// repl runs the line-oriented command loop until "quit" or EOF.
func repl(ctx context.Context, st *store.Store, eng *engine.Engine, parser *ingest.Parser, fs afero.Fs, vc *vault.Client) {
	fmt.Println("thedrop ready. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return
		case "help":
			printHelp()
		case "import":
			if len(args) == 1 {
				importIntoStore(st, parser, fs, args[0])
			} else {
				fmt.Println("usage: import <path>")
			}
		case "albums":
			for _, a := range st.Albums() {
				fmt.Printf("%s  %s - %s (%d tracks)\n", a.ID, a.Artist, a.Title, len(a.TrackIDs))
			}
		case "tracks":
			for _, a := range st.Albums() {
				for _, id := range a.TrackIDs {
					if t, ok := st.Track(id); ok {
						fmt.Printf("%s  %02d %s - %s\n", t.ID, t.TrackNo, t.Artist, t.Title)
					}
				}
			}
		case "queue":
			for i, item := range st.QueueItems() {
				title := item.TrackID
				if t, ok := st.Track(item.TrackID); ok {
					title = t.Title
				}
				fmt.Printf("%d  %s  %s\n", i, item.ID, title)
			}
		case "play":
			if len(args) == 1 {
				st.Play(args[0])
			} else {
				st.TogglePlayPause()
			}
		case "pause":
			st.Pause()
		case "toggle":
			st.TogglePlayPause()
		case "next":
			st.Next()
		case "prev":
			st.Previous()
		case "seek":
			if v, ok := parseFloat(args); ok {
				st.Seek(v)
			}
		case "volume":
			if v, ok := parseFloat(args); ok {
				st.SetVolume(v)
			}
		case "rate":
			if v, ok := parseFloat(args); ok {
				st.SetRate(v)
			}
		case "enqueue":
			if len(args) == 1 {
				st.Enqueue(args[0])
			}
		case "enqueue-album":
			if len(args) == 1 {
				st.EnqueueAlbum(args[0])
			}
		case "dequeue":
			if len(args) == 1 {
				st.RemoveFromQueue(args[0])
			}
		case "move":
			if len(args) == 2 {
				from, err1 := strconv.Atoi(args[0])
				to, err2 := strconv.Atoi(args[1])
				if err1 == nil && err2 == nil {
					st.MoveInQueue(from, to)
				}
			}
		case "clear":
			st.ClearQueue()
		case "remove":
			if len(args) == 1 {
				st.RemoveTrack(args[0])
			}
		case "status":
			printStatus(st, eng)
		case "remote-albums":
			if vc == nil {
				fmt.Println("vault not configured")
				continue
			}
			albums, err := vc.ListAlbums(ctx)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, a := range albums {
				fmt.Printf("%s  %s - %s (%d tracks)\n", a.Folder, a.Artist, a.Title, a.TrackCount)
			}
		case "publish":
			if vc == nil {
				fmt.Println("vault not configured")
				continue
			}
			if len(args) != 2 {
				fmt.Println("usage: publish <folder> <dir>")
				continue
			}
			publishDir(ctx, vc, parser, fs, args[0], args[1])
		case "remote-fetch":
			if vc == nil {
				fmt.Println("vault not configured")
				continue
			}
			if len(args) != 1 {
				fmt.Println("usage: remote-fetch <folder>")
				continue
			}
			entries, err := vc.FetchAlbumTracks(ctx, args[0])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			st.AddTracks(entries)
			fmt.Printf("added %d remote tracks\n", len(entries))
		default:
			fmt.Println("unknown command; type 'help'")
		}
	}
}

// publishDir uploads a local album directory to the vault under folder,
// together with a manifest derived from the parsed tags.
func publishDir(ctx context.Context, vc *vault.Client, parser *ingest.Parser, fs afero.Fs, folder, dir string) {
	entries := parser.ParseDir(dir)
	if len(entries) == 0 {
		fmt.Println("no audio files found in", dir)
		return
	}

	files := make(map[string]io.Reader, len(entries))
	var open []afero.File
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()
	for _, e := range entries {
		f, err := fs.Open(e.Source)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		open = append(open, f)
		files[filepath.Base(e.Source)] = f
	}

	if err := vc.PublishAlbum(ctx, folder, vault.ManifestFromEntries(entries), files); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("published %d tracks to %s\n", len(entries), folder)
}

func parseFloat(args []string) (float64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func printStatus(st *store.Store, eng *engine.Engine) {
	p := st.Player()
	state := "paused"
	if p.IsPlaying {
		state = "playing"
		if eng.PlayPending() {
			state = "play pending"
		}
	}
	title := "(nothing loaded)"
	if t, ok := st.CurrentTrack(); ok {
		title = fmt.Sprintf("%s - %s", t.Artist, t.Title)
	}
	fmt.Printf("%s  %s  t=%.1fs  vol=%.2f  rate=%.2f  queue=%d\n",
		state, title, p.CurrentTime, p.Volume, p.Rate, len(st.QueueItems()))
}

func printHelp() {
	fmt.Print(`commands:
  import <path>           import a file or directory
  albums | tracks | queue show the library and queue
  play [trackId]          load a track, or toggle without an id
  pause | toggle          transport control
  next | prev             advance / retreat
  seek <sec>              move the playback position
  volume <0..1>           set volume
  rate <multiplier>       set playback speed
  enqueue <trackId>       append a track to the queue
  enqueue-album <albumId> append a whole album
  dequeue <itemId>        remove one queue item
  move <from> <to>        reorder the queue
  clear                   empty the queue
  remove <trackId>        delete a track from the library
  remote-albums           list albums in the vault
  remote-fetch <folder>   add a vault album to the library
  publish <folder> <dir>  upload a local album directory to the vault
  status                  show transport state
  quit
`)
}
