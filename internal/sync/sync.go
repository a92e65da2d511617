package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CI5co22/MindSprout/internal/cardhash"
	"github.com/CI5co22/MindSprout/internal/domain"
	"github.com/CI5co22/MindSprout/internal/gitsource"
	"github.com/CI5co22/MindSprout/internal/parser"
	"github.com/CI5co22/MindSprout/internal/storage"
)

// DefaultDeckColor is assigned to decks auto-created for a new source.
const DefaultDeckColor = "bg-indigo-500"

// AddSource registers a card source and auto-creates the deck it feeds.
// Paths ending in .git or using git-style URLs become git sources; anything
// else is a local directory.
func AddSource(db *storage.DB, path string, now time.Time) (*storage.Source, error) {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("source %s already exists", path)
	}

	deck := domain.NewDeck(deckNameForSource(path), DefaultDeckColor, now)
	if err := db.InsertDeck(deck); err != nil {
		return nil, err
	}

	id, err := db.InsertSource(path, SourceType(path), deck.ID)
	if err != nil {
		return nil, err
	}
	return &storage.Source{ID: id, Path: path, Type: SourceType(path), DeckID: deck.ID}, nil
}

// SourceType classifies a source path as "git" or "local".
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// RunSync iterates over all sources and reconciles each one's card files
// into its deck. Per-source failures are logged and skipped so one broken
// source cannot block the rest.
func RunSync(ctx context.Context, db *storage.DB, reposDir string, now time.Time) error {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured")
		return nil
	}

	if err := os.MkdirAll(reposDir, 0o755); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir := source.Path
		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git source", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				slog.Error("failed to sync git source", "url", source.Path, "error", err)
				continue
			}
			dir = localRepoPath
		}

		if err := ReconcileDir(db, source, dir, now); err != nil {
			slog.Error("failed to reconcile source", "path", source.Path, "error", err)
		}
	}
	slog.Info("sync complete")
	return nil
}

// ReconcileDir walks a directory of .md card files and brings the source's
// deck in line with it: parsed cards missing from the deck are inserted as
// new cards, and previously synced cards that disappeared from the files are
// deleted. Identity is the content hash, so edited cards restart as new.
func ReconcileDir(db *storage.DB, source storage.Source, dir string, now time.Time) error {
	var parsed, inserted int
	var parseErrors []error
	found := make(map[string]bool)

	existing, err := db.CardHashesByDeckID(source.DeckID)
	if err != nil {
		return err
	}

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}
		for _, pc := range fileCards {
			parsed++
			hash := cardhash.Hash(pc)
			found[hash] = true
			if _, ok := existing[hash]; ok {
				continue
			}

			card := domain.NewCard(source.DeckID, pc.Question, pc.Answer, now)
			card.Type = pc.Type
			if insertErr := db.InsertCard(card, hash); insertErr != nil {
				parseErrors = append(parseErrors, fmt.Errorf("inserting card from %s: %w", path, insertErr))
				continue
			}
			inserted++
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, walkErr)
	}

	var orphaned int
	for hash, cardID := range existing {
		if found[hash] {
			continue
		}
		if err := db.DeleteCard(cardID); err != nil {
			slog.Warn("failed to delete orphaned card", "card", cardID, "error", err)
			continue
		}
		orphaned++
	}

	if err := db.UpdateSourceLastScanned(source.ID, now); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", parsed,
		"inserted", inserted,
		"orphaned_deleted", orphaned,
		"errors", len(parseErrors),
	)
	for _, e := range parseErrors {
		slog.Warn("sync issue", "error", e)
	}
	return nil
}

func deckNameForSource(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), ".git")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "Imported cards"
	}
	return name
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
