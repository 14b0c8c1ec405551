package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/threelizards/safe-variables/internal/common"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueResolve_Success(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	token, err := codec.Issue("u-1", "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := codec.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "a@b.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestResolve_Expired(t *testing.T) {
	codec := NewTokenCodec(testSecret, -time.Minute)

	token, err := codec.Issue("u-1", "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Resolve(token); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired, got %v", err)
	}
}

func TestResolve_Tampered(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	token, err := codec.Issue("u-1", "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// flip one bit in the signed payload
	b := []byte(token)
	b[len(b)/2] ^= 0x01

	if _, err := codec.Resolve(string(b)); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestResolve_WrongSecret(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)
	other := NewTokenCodec([]byte("another-secret-another-secret-32"), time.Hour)

	token, err := other.Issue("u-1", "a@b.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Resolve(token); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestResolve_Garbage(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := codec.Resolve(token); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("token %q: want ErrInvalidToken, got %v", token, err)
		}
	}
}
