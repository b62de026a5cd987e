package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/manjikama/shoob.scraper/config"
	"github.com/manjikama/shoob.scraper/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func pageRef(n int) *int { return &n }

func sampleSnapshot() Snapshot {
	return Snapshot{
		SessionID:    "session_42",
		ScrapedPages: []int{1, 2, 3},
		Cards: []*models.CardRecord{
			{CardID: "aaa111", CardURL: "https://shoob.gg/cards/info/aaa111", PageNum: pageRef(1), Name: "Rare Dragon", Tier: "4"},
			{CardID: "bbb222", CardURL: "https://shoob.gg/cards/info/bbb222", Name: "Swift Fox", Tier: "2"},
		},
		Stats: models.Statistics{SessionID: "session_42", PagesScraped: 3, CardsExtracted: 2},
	}
}

func TestPersistAndRestore(t *testing.T) {
	cfg := testConfig(t)
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := st.Persist(sampleSnapshot()); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	pages := st.Restore()
	if len(pages) != 3 || pages[0] != 1 || pages[2] != 3 {
		t.Errorf("Restore() = %v, want [1 2 3]", pages)
	}
}

func TestPersistWritesOutputWhenLiveSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.LiveSave = true
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := st.Persist(sampleSnapshot()); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, cfg.DataFile))
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	var doc struct {
		Cards       []models.CardRecord `json:"cards"`
		Total       int                 `json:"total"`
		LastUpdated string              `json:"last_updated"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse output file: %v", err)
	}
	if doc.Total != 2 || len(doc.Cards) != 2 {
		t.Errorf("output holds %d cards with total %d, want 2/2", len(doc.Cards), doc.Total)
	}
	if doc.Cards[0].PageNum == nil || *doc.Cards[0].PageNum != 1 {
		t.Errorf("first card page num = %v, want 1", doc.Cards[0].PageNum)
	}
	if doc.Cards[1].PageNum != nil {
		t.Errorf("second card page num = %v, want null preserved", *doc.Cards[1].PageNum)
	}
	if _, err := time.Parse(time.RFC3339, doc.LastUpdated); err != nil {
		t.Errorf("last_updated %q is not RFC3339: %v", doc.LastUpdated, err)
	}
}

func TestPersistSkipsOutputWithoutLiveSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.LiveSave = false
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := st.Persist(sampleSnapshot()); err != nil {
		t.Fatalf("Persist() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.OutputDir, cfg.DataFile)); !os.IsNotExist(err) {
		t.Errorf("output file should not exist without live save, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, cfg.ProgressFile)); err != nil {
		t.Errorf("progress file should always be written: %v", err)
	}
}

func TestFlushWritesBothDocuments(t *testing.T) {
	cfg := testConfig(t)
	cfg.LiveSave = false
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := st.Flush(sampleSnapshot()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	for _, name := range []string{cfg.DataFile, cfg.ProgressFile} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("%s missing after flush: %v", name, err)
		}
	}
}

func TestFlushRewritesWholeFile(t *testing.T) {
	cfg := testConfig(t)
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := st.Flush(sampleSnapshot()); err != nil {
		t.Fatalf("first Flush() error: %v", err)
	}

	smaller := Snapshot{
		SessionID:    "session_43",
		ScrapedPages: []int{1},
		Cards:        []*models.CardRecord{{CardID: "ccc333", CardURL: "https://shoob.gg/cards/info/ccc333"}},
	}
	if err := st.Flush(smaller); err != nil {
		t.Fatalf("second Flush() error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, cfg.DataFile))
	if err != nil {
		t.Fatalf("read output file: %v", err)
	}
	var doc struct {
		Cards []models.CardRecord `json:"cards"`
		Total int                 `json:"total"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse output file: %v", err)
	}
	if doc.Total != 1 || len(doc.Cards) != 1 || doc.Cards[0].CardID != "ccc333" {
		t.Errorf("second flush must replace the file, got total %d cards %v", doc.Total, doc.Cards)
	}
}

func TestRestoreMissingFile(t *testing.T) {
	st, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if pages := st.Restore(); pages != nil {
		t.Errorf("Restore() = %v, want nil without a progress file", pages)
	}
}

func TestRestoreCorruptFile(t *testing.T) {
	cfg := testConfig(t)
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	path := filepath.Join(cfg.OutputDir, cfg.ProgressFile)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if pages := st.Restore(); pages != nil {
		t.Errorf("Restore() = %v, want nil for a corrupt progress file", pages)
	}
}

func TestSummarize(t *testing.T) {
	cfg := testConfig(t)
	st, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := st.Flush(sampleSnapshot()); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	summary, err := st.Summarize()
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if summary.TotalCards != 2 {
		t.Errorf("total cards = %d, want 2", summary.TotalCards)
	}
	if summary.CompletedPages != 3 {
		t.Errorf("completed pages = %d, want 3", summary.CompletedPages)
	}
	if summary.FileSizeBytes == 0 {
		t.Error("file size should reflect the written output file")
	}
	if summary.Stats.PagesScraped != 3 {
		t.Errorf("stats pages scraped = %d, want 3", summary.Stats.PagesScraped)
	}
}

func TestSummarizeWithoutProgress(t *testing.T) {
	st, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := st.Summarize(); err == nil {
		t.Error("expected an error without a progress file")
	}
}
