// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/removarr/internal/models"
)

// MockWatchlist is a concurrency-safe test double for services.WatchlistService.
//
// Entries and errors are keyed by token. Removed records every successful removal as "token/ratingKey".
type MockWatchlist struct {
	mu         sync.Mutex
	Entries    map[string][]models.WatchlistEntry
	FetchErr   map[string]error
	RemoveErr  map[string]error
	Labels     map[string]string
	Removed    []string
	FetchCalls int
}

// NewMockWatchlist returns an empty [MockWatchlist].
func NewMockWatchlist() *MockWatchlist {
	return &MockWatchlist{
		Entries:   map[string][]models.WatchlistEntry{},
		FetchErr:  map[string]error{},
		RemoveErr: map[string]error{},
		Labels:    map[string]string{},
	}
}

func (m *MockWatchlist) ValidateToken(ctx context.Context, token string) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if label, ok := m.Labels[token]; ok {
		return true, label
	}
	return false, "401 Unauthorized"
}

func (m *MockWatchlist) Watchlist(ctx context.Context, token string) ([]models.WatchlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if err := m.FetchErr[token]; err != nil {
		return nil, err
	}
	entries := make([]models.WatchlistEntry, len(m.Entries[token]))
	copy(entries, m.Entries[token])
	return entries, nil
}

func (m *MockWatchlist) RemoveFromWatchlist(ctx context.Context, token, ratingKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RemoveErr[token]; err != nil {
		return err
	}
	m.Removed = append(m.Removed, token+"/"+ratingKey)
	return nil
}

// RemovedKeys returns a copy of the recorded removals.
func (m *MockWatchlist) RemovedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Removed))
	copy(out, m.Removed)
	return out
}

// MockLibrary is a fixed-answer library checker.
type MockLibrary struct {
	Answer bool
	Calls  int
}

func (m *MockLibrary) Available(ctx context.Context, target models.TargetItem) bool {
	m.Calls++
	return m.Answer
}

// FWriter fails every write, standing in for a closed stdout.
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter passes maxWrites writes through to target, then fails.
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper answers every request with a canned response or error.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser is a response body whose reads fail.
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
