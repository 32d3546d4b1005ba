// Package sync imports cards from registered markdown sources and reconciles
// the card store with them.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/recall/internal/domain"
	"github.com/conorfennell/recall/internal/gitsource"
	"github.com/conorfennell/recall/internal/knol"
	"github.com/conorfennell/recall/internal/parser"
	"github.com/conorfennell/recall/internal/storage"
	"github.com/google/uuid"
)

// Store is the part of the card store that reconciliation needs.
type Store interface {
	InsertSource(ctx context.Context, path, sourceType string) (int64, error)
	FindSourceByPath(ctx context.Context, path string) (*storage.Source, error)
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	UpdateSourceLastScanned(ctx context.Context, sourceID int64, at time.Time) error
	InsertCardIfAbsent(ctx context.Context, card domain.Card, sourceID int64) (bool, error)
	CardIDsBySource(ctx context.Context, sourceID int64) ([]uuid.UUID, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
}

// Report summarises one sync run.
type Report struct {
	Sources  int     `json:"sources"`
	Parsed   int     `json:"parsed"`
	Inserted int     `json:"inserted"`
	Deleted  int     `json:"deleted"`
	Errors   []error `json:"-"`
}

// SourceType guesses whether path names a git repository or a local directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// AddSource registers path as a card source. Local paths are stored
// absolute. Adding a known path returns the existing source.
func AddSource(ctx context.Context, log *slog.Logger, store Store, path string) (storage.Source, error) {
	if strings.TrimSpace(path) == "" {
		return storage.Source{}, fmt.Errorf("source path: %w", domain.ErrInvalidInput)
	}

	sourceType := SourceType(path)
	if sourceType == storage.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("resolve %s: %w", path, err)
		}
		path = abs
	}

	existing, err := store.FindSourceByPath(ctx, path)
	if err != nil {
		return storage.Source{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	id, err := store.InsertSource(ctx, path, sourceType)
	if err != nil {
		return storage.Source{}, err
	}
	log.Info("Source added", "id", id, "type", sourceType, "path", path)
	return storage.Source{ID: id, Path: path, Type: sourceType}, nil
}

// Run iterates over all sources and reconciles them. Git sources are cloned
// or pulled below reposDir first. Per-source failures are collected in the
// report; the returned error is only set when no source could be processed.
func Run(ctx context.Context, log *slog.Logger, store Store, reposDir string, now time.Time) (Report, error) {
	log.Info("Starting sync process for all sources...")
	var report Report

	sources, err := store.GetAllSources(ctx)
	if err != nil {
		return report, fmt.Errorf("get sources: %w", err)
	}

	if len(sources) == 0 {
		log.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return report, nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return report, fmt.Errorf("create repos directory: %w", err)
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		log.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
		report.Sources++

		scanPath := source.Path
		if source.Type == storage.SourceGit {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				log.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}

			if err := gitsource.Sync(ctx, log, source.Path, localRepoPath, nil); err != nil {
				log.Error("Error syncing git repo", "url", source.Path, "error", err)
				report.Errors = append(report.Errors, err)
				continue
			}
			scanPath = localRepoPath
		}

		reconcileLocalSource(ctx, log, store, source.ID, scanPath, now, &report)
	}
	log.Info("Sync process complete.",
		"sources", report.Sources,
		"inserted", report.Inserted,
		"deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return report, nil
}

func reconcileLocalSource(ctx context.Context, log *slog.Logger, store Store, sourceID int64, root string, now time.Time, report *Report) {
	var parsed, inserted int
	var errs []error
	found := make(map[uuid.UUID]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, e := range entries {
			card := domain.Card{
				ID:       knol.ID(e.Question, e.Answer),
				Question: e.Question,
				Answer:   e.Answer,
				Created:  now,
			}
			parsed++
			found[card.ID] = true

			ok, insertErr := store.InsertCardIfAbsent(ctx, card, sourceID)
			if insertErr != nil {
				errs = append(errs, fmt.Errorf("db insert for %s:%d: %w", path, e.Line, insertErr))
				continue
			}
			if ok {
				log.Debug("New card found, inserted", "id", card.ID, "file", path, "line", e.Line)
				inserted++
			}
		}
		return nil
	})

	report.Parsed += parsed
	report.Inserted += inserted
	report.Errors = append(report.Errors, errs...)

	if walkErr != nil {
		log.Error("Error walking directory", "path", root, "error", walkErr)
		report.Errors = append(report.Errors, walkErr)
		return
	}

	ids, err := store.CardIDsBySource(ctx, sourceID)
	if err != nil {
		log.Error("Error getting cards for source", "source_id", sourceID, "error", err)
		report.Errors = append(report.Errors, err)
		return
	}

	var orphaned int
	for _, id := range ids {
		if found[id] {
			continue
		}
		log.Info("Orphaned card, deleting", "id", id)
		if err := store.DeleteCard(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn("Failed to delete orphaned card", "id", id, "error", err)
			report.Errors = append(report.Errors, err)
			continue
		}
		orphaned++
	}
	report.Deleted += orphaned

	if err := store.UpdateSourceLastScanned(ctx, sourceID, now); err != nil {
		log.Warn("Failed to update last scanned for source", "source_id", sourceID, "error", err)
	}

	log.Info("reconciliation complete",
		"path", root,
		"parsed_cards", parsed,
		"inserted", inserted,
		"orphaned_deleted", orphaned,
		"errors", len(errs),
	)
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
		if filepath.IsAbs(repoURL) {
			// A bare repository on disk, e.g. /srv/git/cards.git.
			return filepath.Join(baseDir, "local", strings.TrimSuffix(repoURL, ".git")), nil
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
