package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
)

// writeVideo creates a fake video file with a fixed mtime.
func writeVideo(t *testing.T, dir, name string, size int, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatalf("failed to create video: %v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}
	return path
}

func currentKey(t *testing.T, path string) string {
	t.Helper()
	resolved, fp, err := ResolveVideo(path)
	if err != nil {
		t.Fatalf("ResolveVideo() error = %v", err)
	}
	return model.CacheKey(resolved, fp)
}

var (
	baseMtime    = time.Date(2025, 9, 27, 10, 0, 0, 0, time.UTC)
	testSegments = []model.TranscriptSegment{
		{Start: 0, End: 2, Text: "hello"},
		{Start: 2, End: 4.5, Text: "world"},
	}
	testSummary = model.VideoSummary{Topics: []model.TopicSummary{
		{Title: "Greeting", Timestamp: "00:00", Description: "says hello", Highlights: []model.TopicHighlight{}},
	}}
)

func TestResolveVideo(t *testing.T) {
	dir := t.TempDir()
	path := writeVideo(t, dir, "demo.mp4", 1000, baseMtime)

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"existing file", path, nil},
		{"empty path", "", ErrInvalidInput},
		{"missing file", filepath.Join(dir, "missing.mp4"), ErrFileNotFound},
		{"directory", dir, ErrFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, fp, err := ResolveVideo(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ResolveVideo() unexpected error = %v", err)
				}
				if fp.Size != 1000 || fp.MtimeNanos != baseMtime.UnixNano() {
					t.Errorf("fingerprint = %+v", fp)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ResolveVideo() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFingerprintCache_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("miss when nothing cached", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		if _, ok := cache.Lookup(ctx, path); ok {
			t.Error("Lookup() ok = true, want miss")
		}
	})

	t.Run("miss for missing file", func(t *testing.T) {
		cache := NewFingerprintCache(newMockRecordStore())

		if _, ok := cache.Lookup(ctx, "/non/existent/demo.mp4"); ok {
			t.Error("Lookup() ok = true, want miss")
		}
	})

	t.Run("hit after saving transcript", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		if err := cache.SaveTranscript(ctx, path, testSegments); err != nil {
			t.Fatalf("SaveTranscript() error = %v", err)
		}

		record, ok := cache.Lookup(ctx, path)
		if !ok {
			t.Fatal("Lookup() ok = false, want hit")
		}
		if len(record.Segments) != 2 || record.Segments[1].Text != "world" {
			t.Errorf("Segments = %+v", record.Segments)
		}
		if record.HasSummary() {
			t.Error("record has a summary that was never saved")
		}
	})

	t.Run("changed mtime invalidates and deletes the old record", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		store := newMockRecordStore()
		cache := NewFingerprintCache(store)

		if err := cache.SaveTranscript(ctx, path, testSegments); err != nil {
			t.Fatal(err)
		}
		oldKey := currentKey(t, path)

		newMtime := baseMtime.Add(time.Minute)
		if err := os.Chtimes(path, newMtime, newMtime); err != nil {
			t.Fatal(err)
		}

		if _, ok := cache.Lookup(ctx, path); ok {
			t.Error("Lookup() ok = true after file change, want miss")
		}
		if store.has(oldKey) {
			t.Error("stale record was not deleted")
		}
	})

	t.Run("changed size invalidates", func(t *testing.T) {
		dir := t.TempDir()
		path := writeVideo(t, dir, "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		if err := cache.SaveTranscript(ctx, path, testSegments); err != nil {
			t.Fatal(err)
		}
		writeVideo(t, dir, "demo.mp4", 2000, baseMtime)

		if _, ok := cache.Lookup(ctx, path); ok {
			t.Error("Lookup() ok = true after size change, want miss")
		}
	})

	t.Run("fingerprint mismatch inside record is stale", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		store := newMockRecordStore()
		cache := NewFingerprintCache(store)
		key := currentKey(t, path)

		data, _ := json.Marshal(model.CacheRecord{
			Video:       path,
			Fingerprint: &model.FileFingerprint{Size: 999, MtimeNanos: 1},
			Segments:    testSegments,
		})
		store.data[key] = data

		if _, ok := cache.Lookup(ctx, path); ok {
			t.Error("Lookup() ok = true, want miss")
		}
		if store.has(key) {
			t.Error("mismatched record was not deleted")
		}
	})

	t.Run("corrupt record is deleted and reported as miss", func(t *testing.T) {
		tests := []struct {
			name    string
			payload string
		}{
			{"not json", "{not json"},
			{"no fingerprint", `{"video": "x", "segments": []}`},
			{"unsorted segments", `{"fingerprint": {"size": 1000, "mtime_ns": 1}, "segments": [{"start": 5, "end": 6, "text": "b"}, {"start": 1, "end": 2, "text": "a"}]}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
				store := newMockRecordStore()
				cache := NewFingerprintCache(store)
				key := currentKey(t, path)
				store.data[key] = []byte(tt.payload)

				if _, ok := cache.Lookup(ctx, path); ok {
					t.Error("Lookup() ok = true, want miss")
				}
				if store.has(key) {
					t.Error("corrupt record was not deleted")
				}
			})
		}
	})

	t.Run("store read error is a miss", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		store := newMockRecordStore()
		store.getFn = func(ctx context.Context, key string) ([]byte, error) {
			return nil, errors.New("disk on fire")
		}
		cache := NewFingerprintCache(store)

		if _, ok := cache.Lookup(ctx, path); ok {
			t.Error("Lookup() ok = true, want miss")
		}
	})
}

func TestFingerprintCache_SaveArtifacts(t *testing.T) {
	ctx := context.Background()

	t.Run("summary save keeps transcript", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		if err := cache.SaveTranscript(ctx, path, testSegments); err != nil {
			t.Fatal(err)
		}
		meta := model.SummaryMetadata{PromptVersion: "v1", Extra: map[string]any{}}
		if err := cache.SaveSummary(ctx, path, testSummary, &meta); err != nil {
			t.Fatalf("SaveSummary() error = %v", err)
		}

		record, ok := cache.Lookup(ctx, path)
		if !ok {
			t.Fatal("Lookup() miss")
		}
		if !record.HasTranscript() || !record.HasSummary() {
			t.Errorf("record = %+v, want transcript and summary", record)
		}
		if record.SummaryMetadata() == nil || record.SummaryMetadata().PromptVersion != "v1" {
			t.Errorf("metadata = %+v", record.SummaryMetadata())
		}
	})

	t.Run("transcript save keeps summary", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		if err := cache.SaveSummary(ctx, path, testSummary, nil); err != nil {
			t.Fatal(err)
		}
		if err := cache.SaveTranscript(ctx, path, testSegments); err != nil {
			t.Fatal(err)
		}

		record, _ := cache.Lookup(ctx, path)
		if record == nil || !record.HasSummary() || !record.HasTranscript() {
			t.Errorf("record = %+v, want both artifacts", record)
		}
	})

	t.Run("nil metadata clears stored metadata", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		meta := model.SummaryMetadata{PromptVersion: "v1"}
		_ = cache.SaveSummary(ctx, path, testSummary, &meta)
		_ = cache.SaveSummary(ctx, path, testSummary, nil)

		record, _ := cache.Lookup(ctx, path)
		if record.SummaryMetadata() != nil {
			t.Errorf("metadata = %+v, want nil", record.SummaryMetadata())
		}
	})

	t.Run("unsorted segments are rejected", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		store := newMockRecordStore()
		cache := NewFingerprintCache(store)

		err := cache.SaveTranscript(ctx, path, []model.TranscriptSegment{{Start: 3, End: 4}, {Start: 1, End: 2}})
		if !errors.Is(err, model.ErrSegmentsUnsorted) {
			t.Errorf("SaveTranscript() error = %v, want %v", err, model.ErrSegmentsUnsorted)
		}
		if len(store.data) != 0 {
			t.Error("rejected transcript was written")
		}
	})

	t.Run("store write error is returned", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		writeErr := errors.New("read-only file system")
		store := newMockRecordStore()
		store.putFn = func(ctx context.Context, key string, payload []byte) error { return writeErr }
		cache := NewFingerprintCache(store)

		if err := cache.SaveTranscript(ctx, path, testSegments); !errors.Is(err, writeErr) {
			t.Errorf("SaveTranscript() error = %v, want %v", err, writeErr)
		}
	})

	t.Run("two paths never alias", func(t *testing.T) {
		dir := t.TempDir()
		a := writeVideo(t, dir, "a.mp4", 1000, baseMtime)
		b := writeVideo(t, dir, "b.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())

		if err := cache.SaveTranscript(ctx, a, testSegments); err != nil {
			t.Fatal(err)
		}
		if _, ok := cache.Lookup(ctx, b); ok {
			t.Error("Lookup(b) hit a record saved for a")
		}
	})
}

func TestFingerprintCache_ClearSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("removes summary and metadata", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		cache := NewFingerprintCache(newMockRecordStore())
		meta := model.SummaryMetadata{PromptVersion: "v1"}
		_ = cache.SaveTranscript(ctx, path, testSegments)
		_ = cache.SaveSummary(ctx, path, testSummary, &meta)

		if err := cache.ClearSummary(ctx, path); err != nil {
			t.Fatalf("ClearSummary() error = %v", err)
		}

		record, ok := cache.Lookup(ctx, path)
		if !ok {
			t.Fatal("Lookup() miss, want transcript to remain")
		}
		if record.HasSummary() || record.SummaryMetadata() != nil {
			t.Error("summary fields remain after ClearSummary()")
		}
		if !record.HasTranscript() {
			t.Error("ClearSummary() removed the transcript")
		}
	})

	t.Run("no-op without a record", func(t *testing.T) {
		path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
		store := newMockRecordStore()
		cache := NewFingerprintCache(store)

		if err := cache.ClearSummary(ctx, path); err != nil {
			t.Fatalf("ClearSummary() error = %v", err)
		}
		if len(store.data) != 0 {
			t.Error("ClearSummary() created a record")
		}
	})
}

func TestFingerprintCache_LoadBundle(t *testing.T) {
	ctx := context.Background()
	path := writeVideo(t, t.TempDir(), "demo.mp4", 1000, baseMtime)
	cache := NewFingerprintCache(newMockRecordStore())

	if _, ok := cache.LoadBundle(ctx, path); ok {
		t.Fatal("LoadBundle() ok = true before anything was cached")
	}

	meta := model.NewSummaryMetadata("v1", "m", baseMtime)
	_ = cache.SaveTranscript(ctx, path, testSegments)
	_ = cache.SaveSummary(ctx, path, testSummary, &meta)

	bundle, ok := cache.LoadBundle(ctx, path)
	if !ok {
		t.Fatal("LoadBundle() ok = false")
	}
	if bundle.Transcript != "hello\nworld" {
		t.Errorf("Transcript = %q", bundle.Transcript)
	}
	if bundle.Summary == nil || bundle.Summary.Topics[0].Title != "Greeting" {
		t.Errorf("Summary = %+v", bundle.Summary)
	}
	if bundle.Metadata == nil || bundle.Metadata.BackendModel != "m" {
		t.Errorf("Metadata = %+v", bundle.Metadata)
	}
}
