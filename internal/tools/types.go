package tools

import "time"

// Record captures one installed tool in the local manifest. Invariant: when a
// record is present, the file at BinaryPath was believed (as of
// LastVerifiedAt) to have hash ContentHash.
type Record struct {
	Version        string    `json:"version"`
	ContentHash    string    `json:"content_hash"`
	BinaryPath     string    `json:"binary_path"`
	SourceURL      string    `json:"source_url"`
	InstalledAt    time.Time `json:"installed_at"`
	LastVerifiedAt time.Time `json:"last_verified_at"`
}

// Manifest is the sole on-disk source of truth for what is installed.
type Manifest struct {
	Tools map[string]Record `json:"tools"`
}

// Status reports the resolved state of a managed tool for display.
type Status struct {
	Tool           string    `json:"tool"`
	Version        string    `json:"version,omitempty"`
	Installed      bool      `json:"installed"`
	Verified       bool      `json:"verified"`
	Path           string    `json:"path,omitempty"`
	InstalledAt    time.Time `json:"installed_at,omitzero"`
	LastVerifiedAt time.Time `json:"last_verified_at,omitzero"`
	Error          string    `json:"error,omitempty"`
}
