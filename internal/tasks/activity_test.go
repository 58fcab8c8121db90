package tasks

import (
	"fmt"
	"sync"
	"testing"

	"github.com/desertthunder/removarr/internal/models"
)

func entry(title string) models.ActivityEntry {
	return models.ActivityEntry{Source: models.SourceManual, Title: title, Details: []string{}}
}

func TestActivityLog(t *testing.T) {
	t.Run("most recent first", func(t *testing.T) {
		l := NewActivityLog(5)
		l.Add(entry("one"))
		l.Add(entry("two"))
		l.Add(entry("three"))

		got := l.List()
		want := []string{"three", "two", "one"}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i].Title != want[i] {
				t.Errorf("record %d: expected %q, got %q", i, want[i], got[i].Title)
			}
		}
	})

	t.Run("evicts oldest at capacity", func(t *testing.T) {
		l := NewActivityLog(3)
		for i := range 10 {
			l.Add(entry(fmt.Sprintf("e%d", i)))
		}
		if l.Len() != 3 {
			t.Fatalf("expected 3 records, got %d", l.Len())
		}
		got := l.List()
		if got[0].Title != "e9" || got[2].Title != "e7" {
			t.Errorf("unexpected window %v", []string{got[0].Title, got[1].Title, got[2].Title})
		}
	})

	t.Run("default capacity", func(t *testing.T) {
		if c := NewActivityLog(0).Cap(); c != DefaultActivityCapacity {
			t.Errorf("expected %d, got %d", DefaultActivityCapacity, c)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := NewActivityLog(2).List(); len(got) != 0 {
			t.Errorf("expected no records, got %d", len(got))
		}
	})

	t.Run("concurrent adds", func(t *testing.T) {
		l := NewActivityLog(400)
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				l.Add(entry(fmt.Sprintf("c%d", i)))
				_ = l.List()
			}()
		}
		wg.Wait()
		if l.Len() != 50 {
			t.Errorf("expected 50 records, got %d", l.Len())
		}
	})
}
