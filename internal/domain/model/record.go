package model

import (
	"errors"
	"fmt"
)

// ErrMissingFingerprint is returned when a stored record carries no fingerprint.
var ErrMissingFingerprint = errors.New("cache record has no fingerprint")

// RecordMetadata nests per-artifact metadata inside a CacheRecord.
type RecordMetadata struct {
	Summary *SummaryMetadata `json:"summary,omitempty"`
}

// CacheRecord is the persisted bundle for one {path, fingerprint} pair.
// Transcript and summary fields are set independently; absent fields are nil.
// A stored transcript with no speech is an empty, non-nil Segments slice.
type CacheRecord struct {
	Video       string              `json:"video"`
	Fingerprint *FileFingerprint    `json:"fingerprint"`
	Segments    []TranscriptSegment `json:"segments"`
	Summary     *VideoSummary       `json:"summary,omitempty"`
	Metadata    RecordMetadata      `json:"metadata"`
}

// NewCacheRecord creates an empty record bound to a path and fingerprint.
func NewCacheRecord(path string, fp FileFingerprint) *CacheRecord {
	return &CacheRecord{Video: path, Fingerprint: &fp}
}

// HasTranscript reports whether a transcript has been stored, including an
// empty one.
func (r *CacheRecord) HasTranscript() bool {
	return r.Segments != nil
}

// HasSummary reports whether a summary has been stored.
func (r *CacheRecord) HasSummary() bool {
	return r.Summary != nil
}

// SummaryMetadata returns the stored summary metadata or nil.
func (r *CacheRecord) SummaryMetadata() *SummaryMetadata {
	return r.Metadata.Summary
}

// ClearSummary drops the summary and its metadata.
func (r *CacheRecord) ClearSummary() {
	r.Summary = nil
	r.Metadata.Summary = nil
}

// Validate checks that the record is structurally usable.
func (r *CacheRecord) Validate() error {
	if r.Fingerprint == nil {
		return ErrMissingFingerprint
	}
	if err := r.Fingerprint.Validate(); err != nil {
		return err
	}
	if err := ValidateSegments(r.Segments); err != nil {
		return fmt.Errorf("transcript: %w", err)
	}
	return nil
}
