package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_EmptySecret(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestRoundTrip(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plaintexts := []string{
		"s3cr3t",
		"",
		"correct horse battery staple",
		"päss wörd with ünicode 🔑",
		strings.Repeat("long", 1024),
	}

	for _, p := range plaintexts {
		ct, err := codec.Encrypt(p)
		if err != nil {
			t.Fatalf("encrypt %q: %v", p, err)
		}
		if ct == p {
			t.Errorf("ciphertext equals plaintext for %q", p)
		}
		if !IsEncrypted(ct) {
			t.Errorf("ciphertext missing prefix: %q", ct)
		}

		got, err := codec.Decrypt(ct)
		if err != nil {
			t.Fatalf("decrypt %q: %v", ct, err)
		}
		if got != p {
			t.Errorf("round trip mismatch: got %q, want %q", got, p)
		}
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, err := codec.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := codec.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a == b {
		t.Error("expected distinct ciphertexts for repeated plaintext")
	}
}

func TestDecrypt_TamperDetection(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ct, err := codec.Encrypt("s3cr3t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Flip one byte of the base64 ciphertext body.
	mutated := []byte(ct)
	last := len(mutated) - 1
	if mutated[last] == 'A' {
		mutated[last] = 'B'
	} else {
		mutated[last] = 'A'
	}

	_, err = codec.Decrypt(string(mutated))
	if !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	a, err := New("secret-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := New("secret-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ct, err := a.Encrypt("s3cr3t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := b.Decrypt(ct); !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	codec, err := New("test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no prefix", "not-encrypted"},
		{"prefix only", "gcm:"},
		{"missing separator", "gcm:AAAA"},
		{"bad nonce encoding", "gcm:!!!:AAAA"},
		{"bad body encoding", "gcm:AAAA:!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decrypt(tt.input); !errors.Is(err, ErrDecryption) {
				t.Errorf("expected ErrDecryption, got %v", err)
			}
		})
	}
}
