package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []Entry {
	t.Helper()
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode entry %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerFiltersBelowMinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("mint", WARN, &buf)

	logger.Debug("wallet", "probe", nil)
	logger.Info("wallet", "connected", nil)
	logger.Warn("wallet", "chain changed", map[string]any{"chain": "0x1"})
	logger.Error("mint", "upload failed", errors.New("boom"), nil)

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[0].Fields["chain"] != "0x1" {
		t.Fatalf("unexpected warn entry: %+v", entries[0])
	}
	if entries[1].Error != "boom" || entries[1].Component != "mint" {
		t.Fatalf("unexpected error entry: %+v", entries[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DEBUG,
		" WARN ":  WARN,
		"warning": WARN,
		"error":   ERROR,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestContextCarriesRequestIDAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New("mint", DEBUG, &buf)

	ctx := logger.WithRequestID("attempt-1").WithCategory("mint").WithField("stage", "upload")
	ctx.Info("stage started", map[string]any{"size": 3})
	ctx.Error("stage failed", errors.New("status 502"), nil)

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.RequestID != "attempt-1" || entry.Category != "mint" || entry.Fields["stage"] != "upload" {
			t.Fatalf("context not applied: %+v", entry)
		}
	}
	if entries[0].Fields["size"] != float64(3) {
		t.Fatalf("expected extra field, got %+v", entries[0].Fields)
	}
	if _, ok := entries[1].Fields["size"]; ok {
		t.Fatalf("extra fields leaked between calls: %+v", entries[1].Fields)
	}
}

func TestSubscribeReceivesEntriesUntilUnsubscribed(t *testing.T) {
	logger := New("wasm", INFO)
	ch := make(chan Entry, 4)
	unsubscribe := logger.Subscribe(ch)

	logger.Info("wallet", "first", nil)
	unsubscribe()
	logger.Info("wallet", "second", nil)

	if len(ch) != 1 {
		t.Fatalf("expected 1 delivered entry, got %d", len(ch))
	}
	if got := <-ch; got.Message != "first" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestMiddlewareLogsStatusAndPropagatesRequestID(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHTTPLogger(New("upload-server", INFO, &buf)).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RequestIDHeader) != "req-42" {
			t.Errorf("request id not visible to handler: %q", r.Header.Get(RequestIDHeader))
		}
		http.Error(w, "bad", http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("expected response request id, got %q", rec.Header().Get(RequestIDHeader))
	}
	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[0].Fields["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[0].Duration == nil {
		t.Fatalf("expected duration to be recorded")
	}
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	handler := NewHTTPLogger(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestFileWriterRotatesByAgeAndReadsRecent(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(dir, "mint.log", RotateOptions{Keep: 2})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	fw.now = func() time.Time { return now }
	fw.opened = now

	logger := New("mint", INFO, fw)
	logger.Info("mint", "before rotation", nil)
	now = now.Add(25 * time.Hour)
	logger.Info("mint", "after rotation", nil)

	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	archives, _ := filepath.Glob(filepath.Join(dir, "mint.log.*.gz"))
	if len(archives) != 1 {
		t.Fatalf("expected 1 archive, got %v", archives)
	}
	entries, err := ReadRecent(filepath.Join(dir, "mint.log"), 10)
	if err != nil {
		t.Fatalf("read recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "after rotation" {
		t.Fatalf("unexpected active entries: %+v", entries)
	}
}

func TestReadRecentMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	entries, err := ReadRecent(path, 5)
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty result, got %v, %v", entries, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("ReadRecent must not create files")
	}
}
