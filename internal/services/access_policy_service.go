package services

import (
	"context"
	"fmt"
	"time"

	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/infrastructure/auth"
)

// WindowEnforcer is the part of *casbin.Enforcer the policy engine uses
type WindowEnforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
	AddPolicy(params ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	GetFilteredPolicy(fieldIndex int, fieldValues ...string) ([][]string, error)
}

// WindowRule restricts a device class to [Start, End) local time
type WindowRule struct {
	Class string
	Start string
	End   string
}

func (r WindowRule) validate() error {
	if domain.ParseDeviceClass(r.Class) != domain.DeviceClass(r.Class) {
		return fmt.Errorf("access window class %q is not a device class", r.Class)
	}
	if _, err := domain.ParseClock(r.Start); err != nil {
		return fmt.Errorf("access window %s start: %w", r.Class, err)
	}
	if _, err := domain.ParseClock(r.End); err != nil {
		return fmt.Errorf("access window %s end: %w", r.Class, err)
	}
	return nil
}

// AccessPolicyServiceImpl implements domain.AccessPolicy with casbin
// policies "p, <class>, <start>, <end>". A class without any policy is
// always allowed.
type AccessPolicyServiceImpl struct {
	enforcer WindowEnforcer
	location *time.Location
}

// NewAccessPolicyService evaluates windows in loc (time.Local when nil)
func NewAccessPolicyService(enforcer WindowEnforcer, loc *time.Location) *AccessPolicyServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &AccessPolicyServiceImpl{enforcer: enforcer, location: loc}
}

// Check implements domain.AccessPolicy
func (p *AccessPolicyServiceImpl) Check(fp domain.DeviceFingerprint, now time.Time) error {
	class := string(domain.ParseDeviceClass(string(fp.Class)))

	rules, err := p.enforcer.GetFilteredPolicy(0, class)
	if err != nil {
		return fmt.Errorf("failed to load access windows: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	allowed, err := p.enforcer.Enforce(class, auth.MinuteOfDay(now.In(p.location)))
	if err != nil {
		return fmt.Errorf("failed to evaluate access window: %w", err)
	}
	if !allowed {
		return domain.ErrOutsideWindow
	}
	return nil
}

// SeedDefaults stores rules when no policy exists yet. It reports how many
// rules were added. Nothing is stored if any rule names a class outside the
// closed set or an unparseable clock.
func (p *AccessPolicyServiceImpl) SeedDefaults(ctx context.Context, rules []WindowRule) (int, error) {
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return 0, err
		}
	}

	existing, err := p.enforcer.GetPolicy()
	if err != nil {
		return 0, fmt.Errorf("failed to read access windows: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	added := 0
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		ok, err := p.enforcer.AddPolicy(r.Class, r.Start, r.End)
		if err != nil {
			return added, fmt.Errorf("failed to add access window for %s: %w", r.Class, err)
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Windows lists the stored rules
func (p *AccessPolicyServiceImpl) Windows() ([]WindowRule, error) {
	policies, err := p.enforcer.GetPolicy()
	if err != nil {
		return nil, err
	}
	rules := make([]WindowRule, 0, len(policies))
	for _, pol := range policies {
		if len(pol) < 3 {
			continue
		}
		rules = append(rules, WindowRule{Class: pol[0], Start: pol[1], End: pol[2]})
	}
	return rules, nil
}

var _ domain.AccessPolicy = (*AccessPolicyServiceImpl)(nil)
