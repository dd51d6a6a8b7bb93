// Package translog persists IRC session line traffic to disk. It has
// no dependency on the irc package — a caller wires it to a Session's
// data event itself.
package translog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// mIRC control codes that a transcript should not preserve: color
// (\x03, optionally followed by digit codes the stripper also
// consumes), bold, underline, and reset.
const (
	ctrlColor     = '\x03'
	ctrlBold      = '\x02'
	ctrlUnderline = '\x1F'
	ctrlReset     = '\x0F'
)

// stripControlCodes removes mIRC formatting from a line, leaving the
// text content intact. \x03 may be followed by one or two foreground
// digits, optionally a comma and one or two background digits; all of
// that is consumed along with the code itself.
func stripControlCodes(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case ctrlBold, ctrlUnderline, ctrlReset:
			continue
		case ctrlColor:
			j := skipDigits(runes, i+1, 2)
			if j > i+1 && j+1 < len(runes) && runes[j] == ',' && runes[j+1] >= '0' && runes[j+1] <= '9' {
				j = skipDigits(runes, j+1, 2)
			}
			i = j - 1
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

func skipDigits(runes []rune, i, max int) int {
	n := 0
	for i < len(runes) && n < max && runes[i] >= '0' && runes[i] <= '9' {
		i++
		n++
	}
	return i
}

// Writer is an append-only, daily-rotating transcript sink, one file
// per network per day. It is safe for concurrent use.
type Writer struct {
	basePath      string
	retentionDays int

	mu      sync.Mutex
	files   map[string]*os.File
	day     map[string]string // network -> YYYY-MM-DD of the open file
}

// NewWriter returns a Writer rooted at basePath. retentionDays <= 0
// disables Cleanup.
func NewWriter(basePath string, retentionDays int) *Writer {
	return &Writer{
		basePath:      basePath,
		retentionDays: retentionDays,
		files:         make(map[string]*os.File),
		day:           make(map[string]string),
	}
}

// Write appends line, with mIRC control codes stripped, to network's
// current day's file, rotating automatically at the day boundary.
func (w *Writer) Write(network, line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := w.fileForDay(network, time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		return err
	}

	clean := stripControlCodes(line)
	_, err = fmt.Fprintln(f, clean)
	return err
}

// Rotate closes network's open file, if any, so the next Write opens
// the current day's file again. The path is the same YYYY-MM-DD.log,
// so a mid-day Rotate appends to the existing file rather than
// starting a new one.
func (w *Writer) Rotate(network string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f, ok := w.files[network]; ok {
		delete(w.files, network)
		delete(w.day, network)
		return f.Close()
	}
	return nil
}

func (w *Writer) fileForDay(network, day string) (*os.File, error) {
	if f, ok := w.files[network]; ok && w.day[network] == day {
		return f, nil
	}
	if f, ok := w.files[network]; ok {
		f.Close()
		delete(w.files, network)
	}

	dir := filepath.Join(w.basePath, network)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("translog: create network directory: %w", err)
	}

	path := filepath.Join(dir, day+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("translog: open transcript file: %w", err)
	}

	w.files[network] = f
	w.day[network] = day
	return f, nil
}

// Cleanup removes transcript files older than retentionDays. Intended
// to run on a daily ticker from the consuming application.
func (w *Writer) Cleanup() {
	if w.retentionDays <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	networks, err := os.ReadDir(w.basePath)
	if err != nil {
		return
	}
	for _, network := range networks {
		if !network.IsDir() {
			continue
		}
		dir := filepath.Join(w.basePath, network.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				path := filepath.Join(dir, entry.Name())
				if err := os.Remove(path); err != nil {
					log.WithError(err).WithField("path", path).Warn("translog: cleanup failed to remove file")
				}
			}
		}
	}
}

// Close closes every open file. Safe to call once, at shutdown.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for network, f := range w.files {
		f.Close()
		delete(w.files, network)
		delete(w.day, network)
	}
}
