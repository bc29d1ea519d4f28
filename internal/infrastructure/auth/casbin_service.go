package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/gorm-adapter/v3"
	"github.com/you/feedauth/domain"
	"gorm.io/gorm"
)

// windowModel matches a device class against policies of the form
// "p, <class>, <HH:MM start>, <HH:MM end>". The request carries the class and
// the local minute of day.
const windowModel = `
[request_definition]
r = class, minute

[policy_definition]
p = class, start, end

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.class == p.class && withinWindow(r.minute, p.start, p.end)
`

type CasbinService struct{ E *casbin.Enforcer }

// NewCasbinService builds the access-window enforcer. Policies are stored
// through the gorm adapter when db is set and kept in memory otherwise. An
// empty modelPath selects the built-in window model.
func NewCasbinService(db *gorm.DB, modelPath string) (*CasbinService, error) {
	var (
		m   model.Model
		err error
	)
	if modelPath != "" {
		m, err = model.NewModelFromFile(modelPath)
	} else {
		m, err = model.NewModelFromString(windowModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var E *casbin.Enforcer
	if db != nil {
		adp, err := gormadapter.NewAdapterByDB(db)
		if err != nil {
			return nil, err
		}
		E, err = casbin.NewEnforcer(m, adp)
		if err != nil {
			return nil, err
		}
		if err := E.LoadPolicy(); err != nil {
			return nil, err
		}
	} else {
		E, err = casbin.NewEnforcer(m)
		if err != nil {
			return nil, err
		}
	}

	E.AddFunction("withinWindow", withinWindowFunc)
	return &CasbinService{E}, nil
}

func withinWindowFunc(args ...interface{}) (interface{}, error) {
	if len(args) != 3 {
		return false, fmt.Errorf("withinWindow: expected 3 arguments, got %d", len(args))
	}
	minute, err := toMinute(args[0])
	if err != nil {
		return false, err
	}
	start, err := clockArg(args[1])
	if err != nil {
		return false, err
	}
	end, err := clockArg(args[2])
	if err != nil {
		return false, err
	}
	return WithinWindow(minute, start, end), nil
}

// WithinWindow reports whether minute lies in [start, end). A window whose
// end is before its start wraps past midnight.
func WithinWindow(minute, start, end int) bool {
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// MinuteOfDay returns t's minutes after local midnight
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func toMinute(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("withinWindow: unsupported minute %T", v)
	}
}

func clockArg(v interface{}) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("withinWindow: clock must be a string, got %T", v)
	}
	minute, err := domain.ParseClock(s)
	if err != nil {
		return 0, fmt.Errorf("withinWindow: %w", err)
	}
	return minute, nil
}
