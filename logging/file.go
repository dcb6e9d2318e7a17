package logging

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotateOptions controls when a FileWriter starts a new file and how many
// compressed archives it keeps.
type RotateOptions struct {
	MaxSizeMB int
	MaxAge    time.Duration
	Keep      int
}

func (o RotateOptions) withDefaults() RotateOptions {
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 20
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 24 * time.Hour
	}
	if o.Keep <= 0 {
		o.Keep = 7
	}
	return o
}

// FileWriter appends log lines to dir/name and rotates it into gzip archives.
type FileWriter struct {
	mu       sync.Mutex
	dir      string
	name     string
	opts     RotateOptions
	file     *os.File
	size     int64
	opened   time.Time
	now      func() time.Time
	archives sync.WaitGroup
}

// NewFileWriter opens (or creates) dir/name for appending.
func NewFileWriter(dir, name string, opts RotateOptions) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	fw := &FileWriter{
		dir:  dir,
		name: name,
		opts: opts.withDefaults(),
		now:  time.Now,
	}
	if err := fw.open(); err != nil {
		return nil, err
	}
	return fw, nil
}

// Path is the location of the active log file.
func (fw *FileWriter) Path() string {
	return filepath.Join(fw.dir, fw.name)
}

func (fw *FileWriter) open() error {
	f, err := os.OpenFile(fw.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	fw.file = f
	fw.size = info.Size()
	fw.opened = fw.now()
	return nil
}

func (fw *FileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.file == nil {
		return 0, os.ErrClosed
	}
	if fw.size > 0 && (fw.size+int64(len(p)) > int64(fw.opts.MaxSizeMB)<<20 || fw.now().Sub(fw.opened) > fw.opts.MaxAge) {
		if err := fw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := fw.file.Write(p)
	fw.size += int64(n)
	return n, err
}

func (fw *FileWriter) rotate() error {
	if err := fw.file.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	archived := fmt.Sprintf("%s.%s", fw.Path(), fw.now().Format("20060102-150405.000"))
	if err := os.Rename(fw.Path(), archived); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rename log file: %w", err)
	}

	fw.archives.Add(1)
	go func() {
		defer fw.archives.Done()
		if err := compress(archived); err == nil {
			fw.prune()
		}
	}()

	return fw.open()
}

func compress(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(path + ".gz")
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}

// prune removes the oldest archives beyond opts.Keep. Archive names embed a
// sortable timestamp.
func (fw *FileWriter) prune() {
	matches, err := filepath.Glob(fw.Path() + ".*.gz")
	if err != nil || len(matches) <= fw.opts.Keep {
		return
	}
	sort.Strings(matches)
	for _, path := range matches[:len(matches)-fw.opts.Keep] {
		os.Remove(path)
	}
}

// Close waits for pending archive jobs and closes the active file.
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	f := fw.file
	fw.file = nil
	fw.mu.Unlock()

	fw.archives.Wait()
	if f == nil {
		return nil
	}
	return f.Close()
}

// ReadRecent returns up to n of the newest entries in a log file. Lines that
// are not JSON entries are skipped.
func ReadRecent(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
