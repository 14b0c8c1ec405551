package cryptox

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/threelizards/safe-variables/internal/common"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0xAB}, KeySize)
}

func TestNewCipher_RejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		if _, err := NewCipher(make([]byte, n)); err == nil {
			t.Fatalf("expected error for key length %d", n)
		}
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}

	for _, plaintext := range []string{"x", "database-password-123", "значение", "with spaces and \n newlines"} {
		enc, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if dec != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", dec, plaintext)
		}
	}
}

func TestEncrypt_NonDeterministic(t *testing.T) {
	c, _ := NewCipher(testKey())

	a, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt("same plaintext")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatalf("two encryptions of the same plaintext must differ")
	}
}

func TestEncrypt_EmptyPlaintext(t *testing.T) {
	c, _ := NewCipher(testKey())

	_, err := c.Encrypt("")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestDecrypt_CorruptInputs(t *testing.T) {
	c, _ := NewCipher(testKey())

	enc, err := c.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// flip one bit in the decoded payload
	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	cases := map[string]string{
		"not base64": "%%%not-base64%%%",
		"too short":  base64.StdEncoding.EncodeToString([]byte("abc")),
		"tampered":   tampered,
	}
	for name, input := range cases {
		if _, err := c.Decrypt(input); !errors.Is(err, common.ErrCorruptData) {
			t.Fatalf("%s: want ErrCorruptData, got %v", name, err)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	c1, _ := NewCipher(testKey())
	c2, _ := NewCipher(bytes.Repeat([]byte{0xCD}, KeySize))

	enc, err := c1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := c2.Decrypt(enc); !errors.Is(err, common.ErrCorruptData) {
		t.Fatalf("want ErrCorruptData with wrong key, got %v", err)
	}
}
