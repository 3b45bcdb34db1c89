package catalog

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"auxdeck/internal/integrity"
)

// ErrInvalidCatalog reports a catalog that failed structural validation or
// signature verification. Always recoverable by falling back to a cached copy.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Release identifies one installable artifact for one (tool, platform) pair.
// Immutable once resolved for a given install attempt.
type Release struct {
	Version        string `json:"version"`
	DownloadURL    string `json:"download_url"`
	ContentHash    string `json:"content_hash"`
	BinaryFileName string `json:"binary_file_name"`
	Signature      string `json:"signature,omitempty"`
	PublicKey      string `json:"public_key,omitempty"`
}

// Catalog is the centrally published table of releases, keyed by tool name and
// then by platform key ("os-arch"). Untrusted until validated.
type Catalog struct {
	CatalogVersion int                           `json:"catalog_version"`
	GeneratedAt    time.Time                     `json:"generated_at"`
	Tools          map[string]map[string]Release `json:"tools"`
	Signature      string                        `json:"signature,omitempty"`
}

// PlatformKey returns the lookup key for the running platform.
func PlatformKey() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

// Parse decodes and validates an untrusted catalog document. When the document
// carries a signature and a trust key is configured, the signature is verified
// over the canonical payload; a present-but-invalid signature is fatal. A
// document with no signature is accepted even when a key is configured.
func Parse(data []byte, trustKey string) (*Catalog, error) {
	var shape struct {
		CatalogVersion *int                       `json:"catalog_version"`
		Tools          map[string]json.RawMessage `json:"tools"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if shape.CatalogVersion == nil {
		return nil, fmt.Errorf("%w: missing catalog_version", ErrInvalidCatalog)
	}
	if shape.Tools == nil {
		return nil, fmt.Errorf("%w: missing tools table", ErrInvalidCatalog)
	}

	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	if cat.Signature != "" && trustKey != "" {
		sig, err := base64.StdEncoding.DecodeString(cat.Signature)
		if err != nil {
			return nil, fmt.Errorf("%w: decode signature: %v", ErrInvalidCatalog, err)
		}
		payload, err := SignaturePayload(cat)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if !integrity.VerifySignature(payload, trustKey, sig) {
			return nil, fmt.Errorf("%w: signature verification failed", ErrInvalidCatalog)
		}
	}

	return &cat, nil
}

// SignaturePayload returns the canonical bytes a catalog signature covers:
// the JSON encoding of {catalog_version, generated_at, tools} with the
// signature field excluded. Map keys are emitted in sorted order by
// encoding/json, so the encoding is stable for a given catalog.
func SignaturePayload(cat Catalog) ([]byte, error) {
	payload := struct {
		CatalogVersion int                           `json:"catalog_version"`
		GeneratedAt    time.Time                     `json:"generated_at"`
		Tools          map[string]map[string]Release `json:"tools"`
	}{cat.CatalogVersion, cat.GeneratedAt, cat.Tools}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode signature payload: %w", err)
	}
	return data, nil
}

// ReleasePayload returns the string a per-release signature covers.
func ReleasePayload(tool string, rel Release) []byte {
	return []byte(fmt.Sprintf("%s@%s:%s", tool, rel.Version, rel.ContentHash))
}

// ValidateRelease checks that a release descriptor from an untrusted catalog
// is well formed. The binary file name must not contain path separators, which
// keeps a compromised or malformed catalog from steering the installer outside
// its binaries directory.
func ValidateRelease(rel Release) error {
	if strings.TrimSpace(rel.Version) == "" {
		return errors.New("release missing version")
	}
	if strings.TrimSpace(rel.DownloadURL) == "" {
		return errors.New("release missing download url")
	}
	if strings.TrimSpace(rel.ContentHash) == "" {
		return errors.New("release missing content hash")
	}
	name := rel.BinaryFileName
	if strings.TrimSpace(name) == "" {
		return errors.New("release missing binary file name")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("release binary file name %q is not a plain file name", name)
	}
	return nil
}
