package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mssola/useragent"
	"github.com/you/feedauth/domain"
)

const deviceKey = "device_fingerprint"

// DeviceFingerprint derives the caller's fingerprint from the User-Agent
// header and client IP and stores it on the context.
func DeviceFingerprint() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(deviceKey, FingerprintFrom(c.GetHeader("User-Agent"), c.ClientIP()))
		c.Next()
	}
}

// Fingerprint returns the fingerprint set by DeviceFingerprint, computing it
// on the spot when the middleware did not run.
func Fingerprint(c *gin.Context) domain.DeviceFingerprint {
	if v, ok := c.Get(deviceKey); ok {
		if fp, ok := v.(domain.DeviceFingerprint); ok {
			return fp
		}
	}
	return FingerprintFrom(c.GetHeader("User-Agent"), c.ClientIP())
}

// FingerprintFrom parses a User-Agent string into a device fingerprint
func FingerprintFrom(userAgent, ip string) domain.DeviceFingerprint {
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()

	os := ua.OSInfo().Name
	if os == "" {
		os = ua.OS()
	}

	return domain.DeviceFingerprint{
		Browser: browser,
		OS:      os,
		Class:   classify(ua),
		IP:      ip,
	}
}

func classify(ua *useragent.UserAgent) domain.DeviceClass {
	if ua.Bot() {
		return domain.DeviceUnknown
	}
	if ua.Mobile() {
		return domain.DeviceMobile
	}

	os := strings.ToLower(ua.OS())
	switch {
	case os == "":
		return domain.DeviceUnknown
	case strings.Contains(os, "android"),
		strings.Contains(os, "iphone"),
		strings.Contains(os, "ipad"),
		strings.Contains(os, "ios"):
		return domain.DeviceMobile
	case strings.Contains(os, "windows"),
		strings.Contains(os, "mac os"),
		strings.Contains(os, "linux"),
		strings.Contains(os, "cros"),
		strings.Contains(os, "bsd"):
		return domain.DeviceDesktop
	default:
		return domain.DeviceUnknown
	}
}
