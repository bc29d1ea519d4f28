package domain

import "errors"

// Credential errors
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrInvalidSecret        = errors.New("invalid password")
	ErrAccountAlreadyExists = errors.New("account already exists")
)

// OTP errors
var (
	ErrOTPNotFound    = errors.New("otp not found")
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPMismatch    = errors.New("invalid otp code")
	ErrOTPMaxAttempts = errors.New("maximum otp attempts exceeded")
	ErrOTPResendLimit = errors.New("otp resend limit exceeded")
	ErrDispatchFailed = errors.New("otp dispatch failed")
)

// Challenge errors
var (
	ErrChallengeNotFound = errors.New("login challenge not found")
	ErrChallengeInvalid  = errors.New("invalid login challenge")
)

// Policy errors
var (
	ErrOutsideWindow = errors.New("access restricted during this time for this device class")
)
