package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/you/feedauth/domain"
)

// CredentialServiceImpl implements domain.CredentialService
type CredentialServiceImpl struct {
	accounts    domain.AccountRepository
	passwordSvc domain.PasswordService
	audit       domain.AuditLogger
}

// NewCredentialService creates a new credential service
func NewCredentialService(accounts domain.AccountRepository, passwordSvc domain.PasswordService, audit domain.AuditLogger) *CredentialServiceImpl {
	if audit == nil {
		audit = domain.NopAuditLogger{}
	}
	return &CredentialServiceImpl{
		accounts:    accounts,
		passwordSvc: passwordSvc,
		audit:       audit,
	}
}

// Verify implements domain.CredentialService
func (s *CredentialServiceImpl) Verify(ctx context.Context, email, secret string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !s.passwordSvc.Verify(account.PasswordHash, secret) {
		return nil, domain.ErrInvalidSecret
	}

	return account, nil
}

// Register implements domain.CredentialService
func (s *CredentialServiceImpl) Register(ctx context.Context, email, secret, name, phone string) (*domain.Account, error) {
	email = domain.NormalizeEmail(email)

	// Check if account already exists
	existing, err := s.accounts.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, domain.ErrAccountAlreadyExists
	}
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}

	hashedPassword, err := s.passwordSvc.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		Email:        email,
		Name:         name,
		Phone:        phone,
		PasswordHash: hashedPassword,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.AccountCreatedEvent, email))
	return account, nil
}

var _ domain.CredentialService = (*CredentialServiceImpl)(nil)
