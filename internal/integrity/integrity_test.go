package integrity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	if err := os.WriteFile(path, []byte("hello auxdeck"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := HashBytes([]byte("hello auxdeck")); got != want {
		t.Fatalf("digest mismatch: file=%s bytes=%s", got, want)
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func pemPublicKey(t *testing.T, pub ed25519.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestVerifySignatureEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payload := []byte("yt-dlp@2025.01.01:deadbeef")
	sig := ed25519.Sign(priv, payload)
	key := pemPublicKey(t, pub)

	if !VerifySignature(payload, key, sig) {
		t.Fatal("expected valid signature to verify")
	}
	if VerifySignature([]byte("tampered"), key, sig) {
		t.Fatal("tampered payload must not verify")
	}
	sig[0] ^= 0xff
	if VerifySignature(payload, key, sig) {
		t.Fatal("tampered signature must not verify")
	}
}

func TestVerifySignatureMalformedInputs(t *testing.T) {
	payload := []byte("payload")
	if VerifySignature(payload, "not a pem key", []byte("sig")) {
		t.Fatal("garbage key must not verify")
	}
	if VerifySignature(payload, "-----BEGIN PUBLIC KEY-----\naGVsbG8=\n-----END PUBLIC KEY-----\n", []byte("sig")) {
		t.Fatal("non-SPKI key must not verify")
	}

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if VerifySignature(payload, pemPublicKey(t, pub), []byte("short")) {
		t.Fatal("wrong-length signature must not verify")
	}
}
