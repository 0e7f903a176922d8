package model

import "strings"

// Backend identifies the transcription execution path.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

func (b Backend) IsValid() bool {
	return b == BackendRemote || b == BackendLocal
}

func (b Backend) String() string {
	return string(b)
}

// BackendInfo describes the engine that produced a transcript.
// Precision is stored under the "compute" key.
type BackendInfo struct {
	Backend   Backend `json:"backend"`
	Engine    string  `json:"engine,omitempty"`
	Model     string  `json:"model,omitempty"`
	Device    string  `json:"device,omitempty"`
	Precision string  `json:"compute,omitempty"`
}

// IsZero reports whether no backend has been recorded.
func (b BackendInfo) IsZero() bool {
	return b == BackendInfo{}
}

// Label renders the info for display, e.g. "local faster-whisper small (cuda/float16)".
func (b BackendInfo) Label() string {
	parts := []string{string(b.Backend)}
	if b.Engine != "" {
		parts = append(parts, b.Engine)
	}
	if b.Model != "" {
		parts = append(parts, b.Model)
	}
	label := strings.Join(parts, " ")
	switch {
	case b.Device != "" && b.Precision != "":
		label += " (" + b.Device + "/" + b.Precision + ")"
	case b.Device != "":
		label += " (" + b.Device + ")"
	}
	return label
}

// Map renders the info as a plain map for SummaryMetadata.Extra.
func (b BackendInfo) Map() map[string]any {
	m := map[string]any{"backend": string(b.Backend)}
	if b.Engine != "" {
		m["engine"] = b.Engine
	}
	if b.Model != "" {
		m["model"] = b.Model
	}
	if b.Device != "" {
		m["device"] = b.Device
	}
	if b.Precision != "" {
		m["compute"] = b.Precision
	}
	return m
}

// BackendInfoFromValue rebuilds BackendInfo from a decoded metadata value.
// Non-string fields are ignored.
func BackendInfoFromValue(v any) (BackendInfo, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return BackendInfo{}, false
	}
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	info := BackendInfo{
		Backend:   Backend(str("backend")),
		Engine:    str("engine"),
		Model:     str("model"),
		Device:    str("device"),
		Precision: str("compute"),
	}
	if info.IsZero() {
		return BackendInfo{}, false
	}
	return info, true
}
