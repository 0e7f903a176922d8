package model

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidFingerprint is returned when a stored fingerprint is structurally invalid.
var ErrInvalidFingerprint = errors.New("invalid file fingerprint")

// FileFingerprint is the cheap identity of a source file: its size and modification time.
// A file replaced with identical size and mtime is treated as unchanged.
type FileFingerprint struct {
	Size       int64 `json:"size"`
	MtimeNanos int64 `json:"mtime_ns"`
}

// FingerprintFromInfo derives a fingerprint from OS file metadata.
func FingerprintFromInfo(info os.FileInfo) FileFingerprint {
	return FileFingerprint{
		Size:       info.Size(),
		MtimeNanos: info.ModTime().UnixNano(),
	}
}

// Validate reports whether the fingerprint could have come from a real file.
func (f FileFingerprint) Validate() error {
	if f.Size < 0 || f.MtimeNanos < 0 {
		return ErrInvalidFingerprint
	}
	return nil
}

// CacheKey returns the stable digest identifying the record for path at this fingerprint.
// path must already be resolved to an absolute path.
func CacheKey(path string, fp FileFingerprint) string {
	sum := sha1.Sum(fmt.Appendf(nil, "%s::%d::%d", path, fp.Size, fp.MtimeNanos))
	return hex.EncodeToString(sum[:])
}
