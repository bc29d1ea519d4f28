package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Login events
	LoginSucceededEvent AuditEventType = "LOGIN_SUCCEEDED"
	LoginFailedEvent    AuditEventType = "LOGIN_FAILED"
	AccessDeniedEvent   AuditEventType = "ACCESS_DENIED"
	AccountCreatedEvent AuditEventType = "ACCOUNT_CREATED"

	// OTP events
	OTPIssuedEvent         AuditEventType = "OTP_ISSUED"
	OTPDispatchFailedEvent AuditEventType = "OTP_DISPATCH_FAILED"
	OTPVerifiedEvent       AuditEventType = "OTP_VERIFIED"
	OTPRejectedEvent       AuditEventType = "OTP_REJECTED"

	// Device events
	DeviceTrustedEvent   AuditEventType = "DEVICE_TRUSTED"
	ChallengeIssuedEvent AuditEventType = "CHALLENGE_ISSUED"
)

// AuditEvent represents a security-relevant event
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	Email     string                 `json:"email,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Device    *DeviceFingerprint     `json:"device,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger records audit events
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent)
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, email string) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Email:     email,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithDevice attaches the device fingerprint
func (e *AuditEvent) WithDevice(fp DeviceFingerprint) *AuditEvent {
	e.Device = &fp
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}

// NopAuditLogger discards every event
type NopAuditLogger struct{}

// LogEvent implements AuditLogger
func (NopAuditLogger) LogEvent(context.Context, *AuditEvent) {}
