package esign

import (
	"errors"
	"testing"
	"time"
)

func TestCheckOTP(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	base := Invite{
		OTPHash:      HashCode("654321"),
		OTPExpiresAt: &future,
		LoginID:      "carol@example.com",
	}

	t.Run("valid", func(t *testing.T) {
		if err := CheckOTP(base, "carol@example.com", "654321", now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("no code configured", func(t *testing.T) {
		inv := base
		inv.OTPHash = ""
		if err := CheckOTP(inv, "carol@example.com", "654321", now); !errors.Is(err, ErrOTPNotConfigured) {
			t.Fatalf("expected ErrOTPNotConfigured, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		inv := base
		inv.OTPExpiresAt = &past
		if err := CheckOTP(inv, "carol@example.com", "654321", now); !errors.Is(err, ErrOTPExpired) {
			t.Fatalf("expected ErrOTPExpired, got %v", err)
		}
	})

	t.Run("wrong login", func(t *testing.T) {
		if err := CheckOTP(base, "mallory@example.com", "654321", now); !errors.Is(err, ErrLoginInvalid) {
			t.Fatalf("expected ErrLoginInvalid, got %v", err)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		if err := CheckOTP(base, "carol@example.com", "111111", now); !errors.Is(err, ErrOTPInvalid) {
			t.Fatalf("expected ErrOTPInvalid, got %v", err)
		}
	})

	t.Run("expiry wins over bad login", func(t *testing.T) {
		inv := base
		inv.OTPExpiresAt = &past
		if err := CheckOTP(inv, "mallory@example.com", "111111", now); !errors.Is(err, ErrOTPExpired) {
			t.Fatalf("expected ErrOTPExpired first, got %v", err)
		}
	})
}
