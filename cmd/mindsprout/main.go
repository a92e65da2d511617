package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/CI5co22/MindSprout/internal/bundle"
	"github.com/CI5co22/MindSprout/internal/config"
	"github.com/CI5co22/MindSprout/internal/storage"
	syncsrc "github.com/CI5co22/MindSprout/internal/sync"
	"github.com/CI5co22/MindSprout/internal/web"
)

const usage = `Usage: mindsprout [flags] <command>

Commands:
  serve                 Start the web UI (default)
  sync                  Sync all card sources once and exit
  add-source <path>     Register a directory or git URL as a card source
  export <deck-id> <file>  Write a deck and its cards to a JSON bundle
  import <file>         Load a deck from a JSON bundle

Flags:
`

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	flags := config.Flags()
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, flags.FlagUsages())
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		slog.Error("failed to parse flags", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	args := flags.Args()
	command := "serve"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "serve":
		err = serve(db, cfg)
	case "sync":
		err = syncsrc.RunSync(context.Background(), db, cfg.ReposDir, time.Now())
	case "add-source":
		err = addSource(db, args[1:])
	case "export":
		err = exportDeck(db, args[1:])
	case "import":
		err = importDeck(db, args[1:])
	default:
		flags.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func serve(db *storage.DB, cfg config.Config) error {
	server, err := web.NewServer(db, cfg.ReposDir)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	slog.Info("listening", "addr", cfg.Listen)
	return http.ListenAndServe(cfg.Listen, server)
}

func addSource(db *storage.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("add-source expects exactly one path, got %d", len(args))
	}
	source, err := syncsrc.AddSource(db, args[0], time.Now())
	if err != nil {
		return err
	}
	slog.Info("source registered", "path", source.Path, "type", source.Type)
	return nil
}

func exportDeck(db *storage.DB, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("export expects a deck id and an output file, got %d args", len(args))
	}
	deckID, outPath := args[0], args[1]

	deck, err := db.FindDeckByID(deckID)
	if err != nil {
		return err
	}
	if deck == nil {
		return fmt.Errorf("deck %s not found", deckID)
	}
	cards, err := db.GetCardsByDeckID(deckID)
	if err != nil {
		return err
	}

	data, err := bundle.Export(*deck, cards)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	slog.Info("deck exported", "deck", deck.Name, "cards", len(cards), "file", outPath)
	return nil
}

func importDeck(db *storage.DB, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import expects exactly one bundle file, got %d", len(args))
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}

	deck, cards, err := bundle.Import(data, time.Now())
	if err != nil {
		return err
	}
	if err := db.InsertDeck(deck); err != nil {
		return err
	}
	for _, c := range cards {
		if err := db.InsertCard(c, ""); err != nil {
			return err
		}
	}
	slog.Info("deck imported", "deck", deck.Name, "cards", len(cards))
	return nil
}
