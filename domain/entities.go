package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DeviceClass is the closed set of device categories derived from a user agent
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceDesktop DeviceClass = "desktop"
	DeviceUnknown DeviceClass = "unknown"
)

// ParseDeviceClass maps arbitrary strings onto the closed set; anything
// unrecognised becomes DeviceUnknown.
func ParseDeviceClass(s string) DeviceClass {
	switch DeviceClass(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceMobile:
		return DeviceMobile
	case DeviceDesktop:
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

// ParseClock converts "HH:MM" into minutes after midnight
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// DeviceFingerprint identifies a client device
type DeviceFingerprint struct {
	Browser string      `json:"browser" bson:"browser"`
	OS      string      `json:"os" bson:"os"`
	Class   DeviceClass `json:"device" bson:"device"`
	IP      string      `json:"ip" bson:"ip"`
}

// Equal reports whether both fingerprints match on every attribute
func (f DeviceFingerprint) Equal(other DeviceFingerprint) bool {
	return f.Browser == other.Browser &&
		f.OS == other.OS &&
		f.Class == other.Class &&
		f.IP == other.IP
}

// Key returns a stable digest of the fingerprint. Fields are length-prefixed
// so no two distinct fingerprints share a key.
func (f DeviceFingerprint) Key() string {
	h := sha256.New()
	for _, field := range []string{f.Browser, f.OS, string(f.Class), f.IP} {
		fmt.Fprintf(h, "%d:%s;", len(field), field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Account represents a registered user
type Account struct {
	ID           uint
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	Devices      []DeviceFingerprint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasDevice reports whether fp is one of the account's recognised devices
func (a *Account) HasDevice(fp DeviceFingerprint) bool {
	for _, d := range a.Devices {
		if d.Equal(fp) {
			return true
		}
	}
	return false
}

// NormalizeEmail trims and lower-cases an email so lookups are stable
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Recipient is where an OTP gets delivered
type Recipient struct {
	Email string
	Phone string
}

// OTPRecord is the stored form of an issued code
type OTPRecord struct {
	Email    string
	CodeHash string
	IssuedAt time.Time
	Attempts int
}

// OTPIssue describes a freshly issued code
type OTPIssue struct {
	Email     string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PendingChallenge binds an outstanding OTP to the device that triggered it
type PendingChallenge struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Fingerprint DeviceFingerprint `json:"fingerprint"`
	CreatedAt   time.Time         `json:"created_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
}

// LoginOutcome is the orchestrator's decision for an attempt
type LoginOutcome string

const (
	OutcomeAuthenticated   LoginOutcome = "authenticated"
	OutcomeChallengeIssued LoginOutcome = "challenge_issued"
)

// LoginResult represents the outcome of a login step
type LoginResult struct {
	Outcome            LoginOutcome
	Account            *Account
	ChallengeToken     string
	ChallengeExpiresAt time.Time
}
