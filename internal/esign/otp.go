package esign

import (
	"errors"
	"time"
)

var (
	ErrOTPNotConfigured = errors.New("invite has no security code configured")
	ErrOTPExpired       = errors.New("security code expired")
	ErrLoginInvalid     = errors.New("login id does not match")
	ErrOTPInvalid       = errors.New("security code is invalid")
)

// CheckOTP evaluates the security-code gate against an already-loaded
// pending invite. Existence and terminal-state checks belong to the
// caller. The digest comparison is a plain equality check: the code is
// single-use, short-lived, and rate limited upstream.
func CheckOTP(inv Invite, loginID, code string, now time.Time) error {
	if !inv.OTPRequired() || inv.OTPExpiresAt == nil {
		return ErrOTPNotConfigured
	}
	if now.After(*inv.OTPExpiresAt) {
		return ErrOTPExpired
	}
	if loginID != inv.LoginID {
		return ErrLoginInvalid
	}
	if HashCode(code) != inv.OTPHash {
		return ErrOTPInvalid
	}
	return nil
}
