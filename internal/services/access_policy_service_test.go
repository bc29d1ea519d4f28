package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/infrastructure/auth"
)

func newTestPolicy(t *testing.T, loc *time.Location, rules ...WindowRule) *AccessPolicyServiceImpl {
	t.Helper()

	cs, err := auth.NewCasbinService(nil, "")
	require.NoError(t, err)
	svc := NewAccessPolicyService(cs.E, loc)
	_, err = svc.SeedDefaults(context.Background(), rules)
	require.NoError(t, err)
	return svc
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestAccessPolicyServiceImpl_Check(t *testing.T) {
	svc := newTestPolicy(t, time.UTC, WindowRule{Class: "mobile", Start: "06:00", End: "18:00"})

	tests := []struct {
		name    string
		class   domain.DeviceClass
		now     time.Time
		wantErr error
	}{
		{"mobile before window", domain.DeviceMobile, at(5, 59), domain.ErrOutsideWindow},
		{"mobile at opening", domain.DeviceMobile, at(6, 0), nil},
		{"mobile midday", domain.DeviceMobile, at(12, 30), nil},
		{"mobile last minute", domain.DeviceMobile, at(17, 59), nil},
		{"mobile at closing", domain.DeviceMobile, at(18, 0), domain.ErrOutsideWindow},
		{"mobile at night", domain.DeviceMobile, at(20, 0), domain.ErrOutsideWindow},
		{"desktop at night", domain.DeviceDesktop, at(20, 0), nil},
		{"desktop before dawn", domain.DeviceDesktop, at(3, 0), nil},
		{"unknown at night", domain.DeviceUnknown, at(23, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := domain.DeviceFingerprint{Browser: "b", OS: "o", Class: tt.class, IP: "1.2.3.4"}
			err := svc.Check(fp, tt.now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccessPolicyServiceImpl_Timezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	svc := newTestPolicy(t, loc, WindowRule{Class: "mobile", Start: "06:00", End: "18:00"})
	fp := mobileFingerprint()

	// 16:00 UTC is 19:00 local
	assert.ErrorIs(t, svc.Check(fp, at(16, 0)), domain.ErrOutsideWindow)
	// 04:00 UTC is 07:00 local
	assert.NoError(t, svc.Check(fp, at(4, 0)))
}

func TestAccessPolicyServiceImpl_SeedDefaults(t *testing.T) {
	svc := newTestPolicy(t, time.UTC,
		WindowRule{Class: "mobile", Start: "06:00", End: "18:00"},
		WindowRule{Class: "desktop", Start: "00:00", End: "23:00"},
	)

	rules, err := svc.Windows()
	require.NoError(t, err)
	assert.Len(t, rules, 2)
	assert.Equal(t, "desktop", rules[1].Class)

	// seeding again is a no-op once rules exist
	added, err := svc.SeedDefaults(context.Background(), []WindowRule{{Class: "unknown", Start: "01:00", End: "02:00"}})
	require.NoError(t, err)
	assert.Zero(t, added)

	assert.ErrorIs(t, svc.Check(desktopFingerprint(), at(23, 30)), domain.ErrOutsideWindow)
}

func TestAccessPolicyServiceImpl_SeedDefaultsRejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		rule WindowRule
		want string
	}{
		{"unlisted class", WindowRule{Class: "tablet", Start: "06:00", End: "18:00"}, "not a device class"},
		{"mixed case class", WindowRule{Class: "Mobile", Start: "06:00", End: "18:00"}, "not a device class"},
		{"bad start", WindowRule{Class: "mobile", Start: "6am", End: "18:00"}, "start"},
		{"bad end", WindowRule{Class: "mobile", Start: "06:00", End: "24:30"}, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enforcer, err := auth.NewCasbinService(nil, "")
			require.NoError(t, err)
			svc := NewAccessPolicyService(enforcer.E, time.UTC)

			rules := []WindowRule{{Class: "desktop", Start: "00:00", End: "23:00"}, tt.rule}
			added, err := svc.SeedDefaults(context.Background(), rules)
			assert.ErrorContains(t, err, tt.want)
			assert.Zero(t, added)

			stored, err := svc.Windows()
			require.NoError(t, err)
			assert.Empty(t, stored, "a rejected seed stores nothing")

			// an unknown-class device stays unrestricted
			assert.NoError(t, svc.Check(domain.DeviceFingerprint{Class: domain.DeviceUnknown}, at(23, 30)))
		})
	}
}

func TestAccessPolicyServiceImpl_EnforcerError(t *testing.T) {
	svc := NewAccessPolicyService(&brokenEnforcer{}, time.UTC)
	err := svc.Check(mobileFingerprint(), at(12, 0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrOutsideWindow)
}

type brokenEnforcer struct{}

func (brokenEnforcer) Enforce(...interface{}) (bool, error)   { return false, errors.New("broken") }
func (brokenEnforcer) AddPolicy(...interface{}) (bool, error) { return false, errors.New("broken") }
func (brokenEnforcer) GetPolicy() ([][]string, error)         { return nil, errors.New("broken") }
func (brokenEnforcer) GetFilteredPolicy(int, ...string) ([][]string, error) {
	return nil, errors.New("broken")
}
