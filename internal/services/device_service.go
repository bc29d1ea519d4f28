package services

import (
	"context"
	"fmt"

	"github.com/you/feedauth/domain"
)

// DeviceServiceImpl implements domain.DeviceRegistry on top of the account
// store. Membership is exact on every fingerprint attribute.
type DeviceServiceImpl struct {
	accounts domain.AccountRepository
	audit    domain.AuditLogger
}

func NewDeviceService(accounts domain.AccountRepository, audit domain.AuditLogger) *DeviceServiceImpl {
	if audit == nil {
		audit = domain.NopAuditLogger{}
	}
	return &DeviceServiceImpl{accounts: accounts, audit: audit}
}

func (s *DeviceServiceImpl) IsTrusted(account *domain.Account, fp domain.DeviceFingerprint) bool {
	return account != nil && account.HasDevice(fp)
}

// Trust adds fp to the account's devices. Trusting a known device is a no-op.
func (s *DeviceServiceImpl) Trust(ctx context.Context, account *domain.Account, fp domain.DeviceFingerprint) error {
	if account.HasDevice(fp) {
		return nil
	}
	if err := s.accounts.AddDevice(ctx, account.Email, fp); err != nil {
		return fmt.Errorf("failed to trust device: %w", err)
	}
	account.Devices = append(account.Devices, fp)

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.DeviceTrustedEvent, account.Email).WithDevice(fp))
	return nil
}

var _ domain.DeviceRegistry = (*DeviceServiceImpl)(nil)
