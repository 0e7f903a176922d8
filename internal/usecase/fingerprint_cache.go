package usecase

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/domain/repository"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/metrics"
	"golang.org/x/sync/singleflight"
)

// pathIndexPrefix namespaces the per-path pointer to the current record key.
// Records are keyed by path and fingerprint, so without the pointer a record made
// stale by a file change could never be found again to be removed.
const pathIndexPrefix = "path-"

// FingerprintCache maps a source file's identity and mutation state to cached artifacts.
// Writes are whole-record read-modify-write and are not safe for concurrent writers
// to the same file; callers serialize them.
type FingerprintCache interface {
	// Lookup returns the valid record for the file's current fingerprint.
	// Stale and corrupt records are deleted and reported as a miss.
	Lookup(ctx context.Context, path string) (*model.CacheRecord, bool)

	// SaveTranscript writes the transcript field, leaving any summary untouched.
	SaveTranscript(ctx context.Context, path string, segments []model.TranscriptSegment) error

	// SaveSummary writes the summary and its metadata in one record update,
	// leaving the transcript untouched. A nil metadata clears stored metadata.
	SaveSummary(ctx context.Context, path string, summary model.VideoSummary, metadata *model.SummaryMetadata) error

	// ClearSummary removes summary and metadata from an existing record.
	ClearSummary(ctx context.Context, path string) error

	// LoadBundle returns the cached artifacts for display without running the pipeline.
	LoadBundle(ctx context.Context, path string) (*CacheBundle, bool)
}

// CacheBundle is a read-only view of a valid cache record.
type CacheBundle struct {
	Video      string                    `json:"video"`
	Segments   []model.TranscriptSegment `json:"segments"`
	Transcript string                    `json:"transcript"`
	Summary    *model.VideoSummary       `json:"summary,omitempty"`
	Metadata   *model.SummaryMetadata    `json:"metadata,omitempty"`
}

type pathIndex struct {
	Key string `json:"key"`
}

type fingerprintCache struct {
	store   repository.RecordStore
	sfGroup singleflight.Group
}

// Compile-time verification that fingerprintCache implements FingerprintCache.
var _ FingerprintCache = (*fingerprintCache)(nil)

// NewFingerprintCache creates a FingerprintCache over the given record store.
func NewFingerprintCache(store repository.RecordStore) FingerprintCache {
	return &fingerprintCache{store: store}
}

// ResolveVideo resolves path to an absolute, symlink-free path and returns its fingerprint.
// Returns ErrFileNotFound if the path does not name an existing regular file.
func ResolveVideo(path string) (string, model.FileFingerprint, error) {
	if path == "" {
		return "", model.FileFingerprint{}, ErrInvalidInput
	}

	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", model.FileFingerprint{}, fmt.Errorf("resolve path: %w", err)
	}
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = real
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", model.FileFingerprint{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if !info.Mode().IsRegular() {
		return "", model.FileFingerprint{}, fmt.Errorf("%w: %s is not a regular file", ErrFileNotFound, path)
	}

	return resolved, model.FingerprintFromInfo(info), nil
}

func (c *fingerprintCache) Lookup(ctx context.Context, path string) (*model.CacheRecord, bool) {
	resolved, fp, err := ResolveVideo(path)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(metrics.LookupMiss).Inc()
		return nil, false
	}

	c.sweepStale(ctx, resolved, model.CacheKey(resolved, fp))

	record, result := c.read(ctx, resolved, fp)
	metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
	if record == nil {
		return nil, false
	}
	return record, true
}

func (c *fingerprintCache) SaveTranscript(ctx context.Context, path string, segments []model.TranscriptSegment) error {
	resolved, fp, err := ResolveVideo(path)
	if err != nil {
		return err
	}
	if err := model.ValidateSegments(segments); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	record := c.readOrCreate(ctx, resolved, fp)
	record.Segments = slices.Clone(segments)
	if record.Segments == nil {
		record.Segments = []model.TranscriptSegment{}
	}

	return c.write(ctx, resolved, fp, record, metrics.ArtifactTranscript)
}

func (c *fingerprintCache) SaveSummary(ctx context.Context, path string, summary model.VideoSummary, metadata *model.SummaryMetadata) error {
	resolved, fp, err := ResolveVideo(path)
	if err != nil {
		return err
	}

	record := c.readOrCreate(ctx, resolved, fp)
	record.Summary = &summary
	record.Metadata.Summary = nil
	if metadata != nil {
		meta := *metadata
		record.Metadata.Summary = &meta
	}

	return c.write(ctx, resolved, fp, record, metrics.ArtifactSummary)
}

func (c *fingerprintCache) ClearSummary(ctx context.Context, path string) error {
	resolved, fp, err := ResolveVideo(path)
	if err != nil {
		return err
	}

	record, _ := c.read(ctx, resolved, fp)
	if record == nil {
		return nil
	}
	if !record.HasSummary() && record.SummaryMetadata() == nil {
		return nil
	}
	record.ClearSummary()

	return c.write(ctx, resolved, fp, record, metrics.ArtifactSummary)
}

// LoadBundle coalesces concurrent reads for the same file with singleflight.
func (c *fingerprintCache) LoadBundle(ctx context.Context, path string) (*CacheBundle, bool) {
	result, _, shared := c.sfGroup.Do(path, func() (any, error) {
		record, ok := c.Lookup(ctx, path)
		if !ok {
			return (*CacheBundle)(nil), nil
		}
		return &CacheBundle{
			Video:      record.Video,
			Segments:   record.Segments,
			Transcript: model.TranscriptText(record.Segments),
			Summary:    record.Summary,
			Metadata:   record.SummaryMetadata(),
		}, nil
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	bundle := result.(*CacheBundle)
	return bundle, bundle != nil
}

// read loads and validates the record for resolved at fp.
// It returns the record (nil on any miss) and the lookup result label.
func (c *fingerprintCache) read(ctx context.Context, resolved string, fp model.FileFingerprint) (*model.CacheRecord, string) {
	key := model.CacheKey(resolved, fp)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, metrics.LookupMiss
		}
		slog.Warn("cache read failed, treating as miss",
			"path", resolved,
			"key", key,
			"error", err,
		)
		return nil, metrics.LookupError
	}

	var record model.CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.discard(ctx, key, resolved, "undecodable record", err)
		return nil, metrics.LookupCorrupt
	}
	if err := record.Validate(); err != nil {
		c.discard(ctx, key, resolved, "invalid record", err)
		return nil, metrics.LookupCorrupt
	}
	if *record.Fingerprint != fp {
		c.discard(ctx, key, resolved, "fingerprint mismatch", nil)
		return nil, metrics.LookupStale
	}

	record.Video = resolved
	return &record, metrics.LookupHit
}

func (c *fingerprintCache) readOrCreate(ctx context.Context, resolved string, fp model.FileFingerprint) *model.CacheRecord {
	if record, _ := c.read(ctx, resolved, fp); record != nil {
		return record
	}
	return model.NewCacheRecord(resolved, fp)
}

func (c *fingerprintCache) write(ctx context.Context, resolved string, fp model.FileFingerprint, record *model.CacheRecord, artifact string) error {
	key := model.CacheKey(resolved, fp)
	record.Video = resolved
	record.Fingerprint = &fp

	data, err := json.Marshal(record)
	if err != nil {
		metrics.CacheWritesTotal.WithLabelValues(artifact, metrics.StatusError).Inc()
		return fmt.Errorf("encode cache record: %w", err)
	}
	if err := c.store.Put(ctx, key, data); err != nil {
		metrics.CacheWritesTotal.WithLabelValues(artifact, metrics.StatusError).Inc()
		return fmt.Errorf("write cache record: %w", err)
	}

	index, _ := json.Marshal(pathIndex{Key: key})
	if err := c.store.Put(ctx, indexKey(resolved), index); err != nil {
		metrics.CacheWritesTotal.WithLabelValues(artifact, metrics.StatusError).Inc()
		return fmt.Errorf("write cache path index: %w", err)
	}

	metrics.CacheWritesTotal.WithLabelValues(artifact, metrics.StatusSuccess).Inc()
	return nil
}

// sweepStale deletes the record a path pointed to under a previous fingerprint.
func (c *fingerprintCache) sweepStale(ctx context.Context, resolved, currentKey string) {
	idxKey := indexKey(resolved)

	data, err := c.store.Get(ctx, idxKey)
	if err != nil {
		return
	}

	var idx pathIndex
	if err := json.Unmarshal(data, &idx); err != nil || repository.ValidateKey(idx.Key) != nil {
		c.discard(ctx, idxKey, resolved, "invalid path index", err)
		return
	}
	if idx.Key == currentKey {
		return
	}

	c.discard(ctx, idx.Key, resolved, "file changed since record was written", nil)
	metrics.CacheLookupsTotal.WithLabelValues(metrics.LookupStale).Inc()
	if err := c.store.Delete(ctx, idxKey); err != nil {
		slog.Warn("failed to delete stale path index", "path", resolved, "error", err)
	}
}

func (c *fingerprintCache) discard(ctx context.Context, key, resolved, reason string, cause error) {
	attrs := []any{"path", resolved, "key", key, "reason", reason}
	if cause != nil {
		attrs = append(attrs, "error", cause)
	}
	slog.Info("discarding cache record", attrs...)

	if err := c.store.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete cache record", "path", resolved, "key", key, "error", err)
	}
}

func indexKey(resolved string) string {
	sum := sha1.Sum([]byte(resolved))
	return pathIndexPrefix + hex.EncodeToString(sum[:])
}
