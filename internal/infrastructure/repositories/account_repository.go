package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/you/feedauth/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account
type DBAccount struct {
	ID           uint       `gorm:"primaryKey"`
	Email        string     `gorm:"uniqueIndex;size:255"`
	Name         string     `gorm:"size:255"`
	Phone        string     `gorm:"size:32"`
	PasswordHash string     `gorm:"column:password"`
	Devices      []DBDevice `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "users"
}

// DBDevice is one recognised device of an account. The composite unique
// index makes AddDevice idempotent.
type DBDevice struct {
	ID             uint   `gorm:"primaryKey"`
	AccountID      uint   `gorm:"uniqueIndex:idx_account_device;not null"`
	FingerprintKey string `gorm:"uniqueIndex:idx_account_device;size:768;not null"`
	Browser        string `gorm:"size:128"`
	OS             string `gorm:"size:128"`
	Class          string `gorm:"size:16"`
	IP             string `gorm:"size:64"`
	CreatedAt      time.Time
}

// TableName returns the table name for GORM
func (DBDevice) TableName() string {
	return "user_devices"
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&DBAccount{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrAccountAlreadyExists
	}

	dbAccount := r.domainToDB(account)
	if err := r.db.WithContext(ctx).Create(dbAccount).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAccountAlreadyExists
		}
		return err
	}
	account.ID = dbAccount.ID
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByEmail implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.db.WithContext(ctx).
		Preload("Devices", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("email = ?", email).
		First(&dbAccount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbAccount), nil
}

// AddDevice implements domain.AccountRepository
func (r *AccountRepositoryImpl) AddDevice(ctx context.Context, email string, fp domain.DeviceFingerprint) error {
	var dbAccount DBAccount
	err := r.db.WithContext(ctx).Select("id").Where("email = ?", email).First(&dbAccount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrAccountNotFound
		}
		return err
	}

	device := &DBDevice{
		AccountID:      dbAccount.ID,
		FingerprintKey: fp.Key(),
		Browser:        fp.Browser,
		OS:             fp.OS,
		Class:          string(fp.Class),
		IP:             fp.IP,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(device).Error
}

// domainToDB converts a domain account to its database form. Devices are
// written only through AddDevice.
func (r *AccountRepositoryImpl) domainToDB(account *domain.Account) *DBAccount {
	return &DBAccount{
		ID:           account.ID,
		Email:        account.Email,
		Name:         account.Name,
		Phone:        account.Phone,
		PasswordHash: account.PasswordHash,
	}
}

// dbToDomain converts a database account to a domain account
func (r *AccountRepositoryImpl) dbToDomain(dbAccount *DBAccount) *domain.Account {
	devices := make([]domain.DeviceFingerprint, 0, len(dbAccount.Devices))
	for _, d := range dbAccount.Devices {
		devices = append(devices, domain.DeviceFingerprint{
			Browser: d.Browser,
			OS:      d.OS,
			Class:   domain.ParseDeviceClass(d.Class),
			IP:      d.IP,
		})
	}
	return &domain.Account{
		ID:           dbAccount.ID,
		Email:        dbAccount.Email,
		Name:         dbAccount.Name,
		Phone:        dbAccount.Phone,
		PasswordHash: dbAccount.PasswordHash,
		Devices:      devices,
		CreatedAt:    dbAccount.CreatedAt,
		UpdatedAt:    dbAccount.UpdatedAt,
	}
}
