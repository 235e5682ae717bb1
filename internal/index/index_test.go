package index

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gerunddev/orgnode/internal/config"
	"github.com/gerunddev/orgnode/internal/logger"
	"github.com/gerunddev/orgnode/internal/state"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		OrgDir:     dir,
		LogLevel:   "info",
		Workers:    2,
		AgendaDays: 7,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

const inbox = `#+TITLE: Inbox
* TODO Call the plumber
:PROPERTIES:
:ID: plumber-1
:END:
* Groceries :shopping:
* DONE File taxes
`

func TestIndex(t *testing.T) {
	dir := t.TempDir()
	inboxPath := filepath.Join(dir, "inbox.org")
	notesPath := filepath.Join(dir, "sub", "notes.org")
	writeFile(t, inboxPath, inbox)
	writeFile(t, notesPath, "* Reading list\n")
	writeFile(t, filepath.Join(dir, "readme.md"), "# not org\n")

	st := state.NewState()
	ix := NewIndexer(testConfig(dir), st)

	var logBuf bytes.Buffer
	ix.SetLogger(logger.New(&logBuf))

	t.Run("first run indexes everything", func(t *testing.T) {
		result, err := ix.Index(context.Background(), dir)
		if err != nil {
			t.Fatalf("Index failed: %v", err)
		}
		if result.FilesIndexed != 2 {
			t.Errorf("Expected 2 files indexed, got %d", result.FilesIndexed)
		}
		if len(result.Errors) != 0 {
			t.Errorf("Unexpected errors: %v", result.Errors)
		}

		fs := st.Files[inboxPath]
		if fs == nil {
			t.Fatal("inbox.org was not recorded")
		}
		if fs.Nodes != 3 {
			t.Errorf("Expected 3 nodes, got %d", fs.Nodes)
		}
		if fs.Todos != 2 {
			t.Errorf("Expected 2 todo nodes, got %d", fs.Todos)
		}
		if got := st.IDMap["plumber-1"]; got != inboxPath+"::Call the plumber" {
			t.Errorf("Unexpected IDMap entry: %q", got)
		}
		if st.Files[notesPath] == nil {
			t.Error("nested notes.org was not recorded")
		}

		if !strings.Contains(logBuf.String(), "index completed") {
			t.Errorf("Expected 'index completed' log message, got: %s", logBuf.String())
		}
	})

	t.Run("second run skips unchanged files", func(t *testing.T) {
		result, err := ix.Index(context.Background(), dir)
		if err != nil {
			t.Fatalf("Index failed: %v", err)
		}
		if result.FilesIndexed != 0 {
			t.Errorf("Expected nothing to be re-indexed, got %d", result.FilesIndexed)
		}
		if result.Skipped != 2 {
			t.Errorf("Expected 2 skipped files, got %d", result.Skipped)
		}
	})

	t.Run("modified file is re-indexed", func(t *testing.T) {
		writeFile(t, notesPath, "* Reading list\n* TODO Buy a lamp\n")
		later := time.Now().Add(2 * time.Second)
		if err := os.Chtimes(notesPath, later, later); err != nil {
			t.Fatalf("Failed to change mtime: %v", err)
		}

		result, err := ix.Index(context.Background(), dir)
		if err != nil {
			t.Fatalf("Index failed: %v", err)
		}
		if result.FilesIndexed != 1 {
			t.Errorf("Expected 1 file re-indexed, got %d", result.FilesIndexed)
		}
		if got := st.Files[notesPath].Todos; got != 1 {
			t.Errorf("Expected 1 todo after edit, got %d", got)
		}
	})

	t.Run("deleted file is pruned", func(t *testing.T) {
		if err := os.Remove(inboxPath); err != nil {
			t.Fatalf("Failed to remove file: %v", err)
		}

		result, err := ix.Index(context.Background(), dir)
		if err != nil {
			t.Fatalf("Index failed: %v", err)
		}
		if result.Pruned != 1 {
			t.Errorf("Expected 1 pruned file, got %d", result.Pruned)
		}
		if _, ok := st.IDMap["plumber-1"]; ok {
			t.Error("ID of deleted file should be forgotten")
		}
	})
}

func TestIndexDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.org"), "* First\n:PROPERTIES:\n:ID: same\n:END:\n")
	writeFile(t, filepath.Join(dir, "b.org"), "* Second\n:PROPERTIES:\n:ID: same\n:END:\n")

	ix := NewIndexer(testConfig(dir), state.NewState())
	var logBuf bytes.Buffer
	ix.SetLogger(logger.New(&logBuf))

	result, err := ix.Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if len(result.Duplicates) != 1 || result.Duplicates[0] != "same" {
		t.Errorf("Expected duplicate id 'same', got %v", result.Duplicates)
	}
	if !strings.Contains(logBuf.String(), "duplicate id") {
		t.Errorf("Expected 'duplicate id' log message, got: %s", logBuf.String())
	}
}

func TestIndexExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inbox.org"), inbox)
	writeFile(t, filepath.Join(dir, "2023.archive.org"), "* Old\n")

	cfg := testConfig(dir)
	cfg.ExcludePatterns = []string{"*.archive.org"}
	st := state.NewState()

	result, err := NewIndexer(cfg, st).Index(context.Background(), dir)
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	if result.FilesIndexed != 1 {
		t.Errorf("Expected 1 file indexed, got %d", result.FilesIndexed)
	}
	if _, ok := st.Files[filepath.Join(dir, "2023.archive.org")]; ok {
		t.Error("Excluded file should not be recorded")
	}
}

func TestIndexCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inbox.org"), inbox)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIndexer(testConfig(dir), state.NewState()).Index(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestIndexMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	if _, err := NewIndexer(testConfig(dir), state.NewState()).Index(context.Background(), dir); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestScanDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// Create test files
	writeFile(t, filepath.Join(tmpDir, "file1.org"), "test")
	writeFile(t, filepath.Join(tmpDir, "file2.org"), "test")
	writeFile(t, filepath.Join(tmpDir, "file.md"), "test")
	writeFile(t, filepath.Join(tmpDir, "file.txt"), "test")
	writeFile(t, filepath.Join(tmpDir, "subdir", "file3.org"), "test")
	writeFile(t, filepath.Join(tmpDir, "subdir", "scratch.org"), "test")

	orgFiles, err := ScanDirectory(tmpDir, ".org", nil)
	if err != nil {
		t.Fatalf("ScanDirectory failed: %v", err)
	}
	if len(orgFiles) != 4 {
		t.Errorf("Expected 4 .org files, got %d", len(orgFiles))
	}

	cfg := &config.Config{ExcludePatterns: []string{"scratch*"}}
	orgFiles, err = ScanDirectory(tmpDir, ".org", cfg.IsExcluded)
	if err != nil {
		t.Fatalf("ScanDirectory failed: %v", err)
	}
	if len(orgFiles) != 3 {
		t.Errorf("Expected 3 .org files after exclusion, got %d", len(orgFiles))
	}

	mdFiles, err := ScanDirectory(tmpDir, ".md", nil)
	if err != nil {
		t.Fatalf("ScanDirectory failed: %v", err)
	}
	if len(mdFiles) != 1 {
		t.Errorf("Expected 1 .md file, got %d", len(mdFiles))
	}
}

func TestResultString(t *testing.T) {
	start := time.Now()
	r := &Result{FilesIndexed: 3, Skipped: 1, StartTime: start, EndTime: start.Add(time.Second)}
	if got := r.String(); !strings.Contains(got, "3 files indexed") || !strings.Contains(got, "1 unchanged") {
		t.Errorf("Unexpected summary: %s", got)
	}
}
