package tools

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"auxdeck/internal/catalog"
	"auxdeck/internal/integrity"
	"auxdeck/internal/paths"
)

type fakeReleases struct {
	rel catalog.Release
	err error
}

func (f *fakeReleases) Resolve(context.Context, string) (catalog.Release, error) {
	return f.rel, f.err
}

type fakeFetcher struct {
	mu      sync.Mutex
	data    []byte
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (f *fakeFetcher) FetchBuffer(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testAppPaths(t *testing.T) paths.AppPaths {
	t.Helper()
	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	return paths.AppPaths{
		Root:         root,
		BinDir:       binDir,
		DownloadsDir: filepath.Join(binDir, "downloads"),
		ManifestFile: filepath.Join(binDir, "manifest.json"),
	}
}

func testInstaller(t *testing.T, releases ReleaseSource, fetcher Fetcher, now func() time.Time) (*Installer, paths.AppPaths) {
	t.Helper()
	p := testAppPaths(t)
	store := NewManifestStore(p.ManifestFile)
	inst := NewInstaller(releases, fetcher, store, p, InstallerOptions{Now: now})
	return inst, p
}

func assertNoPartFiles(t *testing.T, downloadsDir string) {
	t.Helper()
	entries, err := os.ReadDir(downloadsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read downloads dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".part") {
			t.Fatalf("temporary download left behind: %s", entry.Name())
		}
	}
}

func TestEnsureInstalledDownloadsAndCommits(t *testing.T) {
	payload := []byte("#!/bin/sh\necho yt-dlp\n")
	rel := catalog.Release{
		Version:        "2026.01.01",
		DownloadURL:    "https://example.com/yt-dlp",
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: "yt-dlp",
	}
	fetcher := &fakeFetcher{data: payload}
	inst, p := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	path, err := inst.EnsureInstalled(context.Background(), "yt-dlp")
	if err != nil {
		t.Fatalf("EnsureInstalled: %v", err)
	}
	if path != filepath.Join(p.BinDir, "yt-dlp") {
		t.Fatalf("unexpected binary path %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat binary: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		t.Fatalf("binary is not executable: %s", info.Mode())
	}

	rec, ok := NewManifestStore(p.ManifestFile).Load().Tools["yt-dlp"]
	if !ok {
		t.Fatal("expected manifest record")
	}
	if rec.Version != rel.Version || rec.ContentHash != rel.ContentHash {
		t.Fatalf("unexpected record %+v", rec)
	}
	assertNoPartFiles(t, p.DownloadsDir)
}

func TestEnsureInstalledSecondCallSkipsDownload(t *testing.T) {
	payload := []byte("binary-bytes")
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: "tool",
	}
	fetcher := &fakeFetcher{data: payload}

	clock := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }
	inst, p := testInstaller(t, &fakeReleases{rel: rel}, fetcher, now)

	if _, err := inst.EnsureInstalled(context.Background(), "tool"); err != nil {
		t.Fatalf("first EnsureInstalled: %v", err)
	}
	first := NewManifestStore(p.ManifestFile).Load().Tools["tool"]

	clock = clock.Add(time.Hour)
	if _, err := inst.EnsureInstalled(context.Background(), "tool"); err != nil {
		t.Fatalf("second EnsureInstalled: %v", err)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("second call must not download, got %d fetches", fetcher.callCount())
	}

	second := NewManifestStore(p.ManifestFile).Load().Tools["tool"]
	if !second.InstalledAt.Equal(first.InstalledAt) {
		t.Fatal("installed_at must be unchanged by re-verification")
	}
	if !second.LastVerifiedAt.After(first.LastVerifiedAt) {
		t.Fatal("last_verified_at must be refreshed")
	}
}

func TestReinstallAlwaysDownloads(t *testing.T) {
	payload := []byte("binary-bytes")
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: "tool",
	}
	fetcher := &fakeFetcher{data: payload}
	inst, _ := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	if _, err := inst.EnsureInstalled(context.Background(), "tool"); err != nil {
		t.Fatalf("EnsureInstalled: %v", err)
	}
	if _, err := inst.Reinstall(context.Background(), "tool"); err != nil {
		t.Fatalf("Reinstall: %v", err)
	}
	if fetcher.callCount() != 2 {
		t.Fatalf("Reinstall must download even when verified, got %d fetches", fetcher.callCount())
	}
}

func TestEnsureInstalledDetectsTampering(t *testing.T) {
	payload := []byte("genuine tool bytes")
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: "tool",
	}
	fetcher := &fakeFetcher{data: payload}
	inst, _ := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	path, err := inst.EnsureInstalled(context.Background(), "tool")
	if err != nil {
		t.Fatalf("EnsureInstalled: %v", err)
	}

	if err := os.WriteFile(path, []byte("tampered"), 0o755); err != nil {
		t.Fatalf("tamper binary: %v", err)
	}

	if _, err := inst.EnsureInstalled(context.Background(), "tool"); err != nil {
		t.Fatalf("re-install after tampering: %v", err)
	}
	if fetcher.callCount() != 2 {
		t.Fatalf("tampered binary must trigger a re-download, got %d fetches", fetcher.callCount())
	}

	sum, err := integrity.HashFile(path)
	if err != nil {
		t.Fatalf("hash restored binary: %v", err)
	}
	if sum != rel.ContentHash {
		t.Fatal("restored binary does not match the release hash")
	}
}

func TestEnsureInstalledChecksumMismatch(t *testing.T) {
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    integrity.HashBytes([]byte("expected bytes")),
		BinaryFileName: "tool",
	}
	fetcher := &fakeFetcher{data: []byte("attacker bytes")}
	inst, p := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	_, err := inst.EnsureInstalled(context.Background(), "tool")
	var mismatch *ChecksumMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected *ChecksumMismatchError, got %v", err)
	}
	if mismatch.Tool != "tool" {
		t.Fatalf("unexpected error detail %+v", mismatch)
	}

	if _, statErr := os.Stat(filepath.Join(p.BinDir, "tool")); !os.IsNotExist(statErr) {
		t.Fatal("mismatched download must never reach the final path")
	}
	assertNoPartFiles(t, p.DownloadsDir)
}

func signedRelease(t *testing.T, tool string, payload []byte) catalog.Release {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}

	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/" + tool,
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: tool,
		PublicKey:      string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
	}
	sig := ed25519.Sign(priv, catalog.ReleasePayload(tool, rel))
	rel.Signature = base64.StdEncoding.EncodeToString(sig)
	return rel
}

func TestEnsureInstalledVerifiesSignature(t *testing.T) {
	payload := []byte("signed tool bytes")
	rel := signedRelease(t, "tool", payload)
	fetcher := &fakeFetcher{data: payload}
	inst, _ := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	if _, err := inst.EnsureInstalled(context.Background(), "tool"); err != nil {
		t.Fatalf("EnsureInstalled with valid signature: %v", err)
	}
}

func TestEnsureInstalledRejectsBadSignature(t *testing.T) {
	payload := []byte("signed tool bytes")
	rel := signedRelease(t, "tool", payload)
	rel.Signature = base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize))

	fetcher := &fakeFetcher{data: payload}
	inst, p := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	_, err := inst.EnsureInstalled(context.Background(), "tool")
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(p.BinDir, "tool")); !os.IsNotExist(statErr) {
		t.Fatal("unsigned binary must never reach the final path")
	}
	assertNoPartFiles(t, p.DownloadsDir)
}

func TestEnsureInstalledPropagatesResolveFailure(t *testing.T) {
	inst, _ := testInstaller(t, &fakeReleases{err: catalog.ErrUnsupportedPlatform}, &fakeFetcher{}, nil)
	if _, err := inst.EnsureInstalled(context.Background(), "tool"); !errors.Is(err, catalog.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
}

func TestEnsureInstalledRejectsPathSeparatorInName(t *testing.T) {
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    "cafe",
		BinaryFileName: "../tool",
	}
	inst, _ := testInstaller(t, &fakeReleases{rel: rel}, &fakeFetcher{}, nil)
	if _, err := inst.EnsureInstalled(context.Background(), "tool"); err == nil {
		t.Fatal("expected rejection of traversal-prone binary name")
	}
}

func TestConcurrentInstallsCoalesce(t *testing.T) {
	payload := []byte("tool bytes")
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: "tool",
	}
	fetcher := &fakeFetcher{
		data:    payload,
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	inst, _ := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	var wg sync.WaitGroup
	results := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[0] = inst.EnsureInstalled(context.Background(), "tool")
	}()

	// Wait until the first install is mid-download, then issue a second
	// request for the same tool.
	<-fetcher.entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, results[1] = inst.EnsureInstalled(context.Background(), "tool")
	}()

	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	for i, err := range results {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("concurrent installs must share one download, got %d", fetcher.callCount())
	}
}

func TestStatusReflectsTampering(t *testing.T) {
	payload := []byte("tool bytes")
	rel := catalog.Release{
		Version:        "1.0",
		DownloadURL:    "https://example.com/tool",
		ContentHash:    integrity.HashBytes(payload),
		BinaryFileName: "tool",
	}
	fetcher := &fakeFetcher{data: payload}
	inst, _ := testInstaller(t, &fakeReleases{rel: rel}, fetcher, nil)

	if st := inst.Status("tool"); st.Installed {
		t.Fatalf("expected not installed, got %+v", st)
	}

	path, err := inst.EnsureInstalled(context.Background(), "tool")
	if err != nil {
		t.Fatalf("EnsureInstalled: %v", err)
	}
	if st := inst.Status("tool"); !st.Installed || !st.Verified {
		t.Fatalf("expected verified status, got %+v", st)
	}

	if err := os.WriteFile(path, []byte("tampered"), 0o755); err != nil {
		t.Fatalf("tamper binary: %v", err)
	}
	if st := inst.Status("tool"); st.Verified {
		t.Fatalf("expected unverified status after tampering, got %+v", st)
	}
}
