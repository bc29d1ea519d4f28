package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/you/feedauth/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAccountRepository implements domain.AccountRepository on a document
// collection where devices are embedded in the account document.
type MongoAccountRepository struct {
	coll *mongo.Collection
}

type mongoAccount struct {
	ID           primitive.ObjectID         `bson:"_id,omitempty"`
	Email        string                     `bson:"email"`
	Name         string                     `bson:"name,omitempty"`
	Phone        string                     `bson:"phone,omitempty"`
	PasswordHash string                     `bson:"password"`
	Devices      []domain.DeviceFingerprint `bson:"devices"`
	CreatedAt    time.Time                  `bson:"created_at"`
	UpdatedAt    time.Time                  `bson:"updated_at"`
}

// NewMongoAccountRepository creates a repository over db.users
func NewMongoAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{coll: db.Collection("users")}
}

// EnsureIndexes creates the unique email index
func (r *MongoAccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create email index: %w", err)
	}
	return nil
}

// Create implements domain.AccountRepository
func (r *MongoAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	doc := mongoAccount{
		Email:        account.Email,
		Name:         account.Name,
		Phone:        account.Phone,
		PasswordHash: account.PasswordHash,
		Devices:      []domain.DeviceFingerprint{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountAlreadyExists
		}
		return err
	}
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// FindByEmail implements domain.AccountRepository
func (r *MongoAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var doc mongoAccount
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	devices := make([]domain.DeviceFingerprint, 0, len(doc.Devices))
	for _, d := range doc.Devices {
		d.Class = domain.ParseDeviceClass(string(d.Class))
		devices = append(devices, d)
	}
	return &domain.Account{
		Email:        doc.Email,
		Name:         doc.Name,
		Phone:        doc.Phone,
		PasswordHash: doc.PasswordHash,
		Devices:      devices,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

// AddDevice implements domain.AccountRepository. $addToSet keeps the append
// idempotent within a single atomic document update.
func (r *MongoAccountRepository) AddDevice(ctx context.Context, email string, fp domain.DeviceFingerprint) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{
			"$addToSet": bson.M{"devices": fp},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

var _ domain.AccountRepository = (*MongoAccountRepository)(nil)
