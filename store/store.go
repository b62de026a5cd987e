// Package store owns the durable representation of a crawl: the progress
// document and the accumulated card output. Both are whole-file rewrites,
// so every persist call reflects the complete current state.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/manjikama/shoob.scraper/config"
	"github.com/manjikama/shoob.scraper/models"
)

// Snapshot is the read-only view of crawl state the store serialises. The
// orchestrator builds it synchronously; nothing mutates it during a persist.
type Snapshot struct {
	SessionID    string
	ScrapedPages []int
	Cards        []*models.CardRecord
	Stats        models.Statistics
}

type progressDocument struct {
	SessionID    string            `json:"session_id"`
	Timestamp    string            `json:"timestamp"`
	ScrapedPages []int             `json:"scraped_pages"`
	TotalCards   int               `json:"total_cards"`
	Stats        models.Statistics `json:"stats"`
}

type outputDocument struct {
	Cards       []*models.CardRecord `json:"cards"`
	Total       int                  `json:"total"`
	LastUpdated string               `json:"last_updated"`
}

// Store persists crawl state under one output directory.
type Store struct {
	dataPath     string
	progressPath string
	liveSave     bool
	pretty       bool
	now          func() time.Time
}

// New prepares the output directory. Failure here is one of the few fatal
// conditions of a run: without the directory nothing can be persisted.
func New(cfg *config.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", cfg.OutputDir, err)
	}
	return &Store{
		dataPath:     filepath.Join(cfg.OutputDir, cfg.DataFile),
		progressPath: filepath.Join(cfg.OutputDir, cfg.ProgressFile),
		liveSave:     cfg.LiveSave,
		pretty:       cfg.PrettyPrint,
		now:          time.Now,
	}, nil
}

// Persist writes the progress document and, when live-save is enabled, the
// full output document.
func (s *Store) Persist(snap Snapshot) error {
	if err := s.writeProgress(snap); err != nil {
		return err
	}
	if s.liveSave {
		return s.writeOutput(snap)
	}
	return nil
}

// Flush writes both documents regardless of the live-save setting. Called
// at run end and on interrupt.
func (s *Store) Flush(snap Snapshot) error {
	if err := s.writeProgress(snap); err != nil {
		return err
	}
	return s.writeOutput(snap)
}

// Restore reads the progress document and returns the pages a prior run
// already completed. A missing, unreadable, or corrupt file is treated as
// no prior progress.
func (s *Store) Restore() []int {
	raw, err := os.ReadFile(s.progressPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read progress file", slog.String("path", s.progressPath), slog.Any("error", err))
		}
		return nil
	}

	var doc progressDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Warn("corrupt progress file, starting fresh", slog.String("path", s.progressPath), slog.Any("error", err))
		return nil
	}
	return doc.ScrapedPages
}

// Summary describes the persisted output files for reporting.
type Summary struct {
	DataPath       string
	TotalCards     int
	CompletedPages int
	LastUpdated    string
	FileSizeBytes  int64
	Stats          models.Statistics
}

// Summarize reads the persisted documents without touching the network.
func (s *Store) Summarize() (*Summary, error) {
	raw, err := os.ReadFile(s.progressPath)
	if err != nil {
		return nil, fmt.Errorf("read progress file: %w", err)
	}
	var progress progressDocument
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, fmt.Errorf("parse progress file: %w", err)
	}

	summary := &Summary{
		DataPath:       s.dataPath,
		TotalCards:     progress.TotalCards,
		CompletedPages: len(progress.ScrapedPages),
		LastUpdated:    progress.Timestamp,
		Stats:          progress.Stats,
	}
	if info, err := os.Stat(s.dataPath); err == nil {
		summary.FileSizeBytes = info.Size()
	}
	return summary, nil
}

func (s *Store) writeProgress(snap Snapshot) error {
	doc := progressDocument{
		SessionID:    snap.SessionID,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		ScrapedPages: snap.ScrapedPages,
		TotalCards:   len(snap.Cards),
		Stats:        snap.Stats,
	}
	if err := s.writeFile(s.progressPath, doc); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *Store) writeOutput(snap Snapshot) error {
	cards := snap.Cards
	if cards == nil {
		cards = []*models.CardRecord{}
	}
	doc := outputDocument{
		Cards:       cards,
		Total:       len(cards),
		LastUpdated: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.writeFile(s.dataPath, doc); err != nil {
		return fmt.Errorf("save output: %w", err)
	}
	return nil
}

func (s *Store) writeFile(path string, doc any) error {
	var (
		raw []byte
		err error
	)
	if s.pretty {
		raw, err = json.MarshalIndent(doc, "", "  ")
	} else {
		raw, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
