package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/otpchat/chat-api/internal/core/domain"
)

const usersCollection = "users"

// UserRepository is the Mongo-backed Credential Store.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoOTP struct {
	CodeHash  string    `bson:"code_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type mongoUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	FullName    string             `bson:"fullname"`
	PhoneNumber string             `bson:"phone_number"`
	IsVerified  bool               `bson:"is_verified"`
	OTP         *mongoOTP          `bson:"otp,omitempty"`
	CreatedAt   int64              `bson:"created_at"`
	UpdatedAt   int64              `bson:"updated_at"`
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt.Unix(),
		UpdatedAt:   user.UpdatedAt.Unix(),
	}
	if user.OTP != nil {
		doc.OTP = &mongoOTP{CodeHash: user.OTP.CodeHash, ExpiresAt: user.OTP.ExpiresAt.UTC()}
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return toDomainUser(doc), nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"phone_number": phone})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) UpdatePendingOTP(ctx context.Context, id, fullName string, otp domain.OTP) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"otp":        mongoOTP{CodeHash: otp.CodeHash, ExpiresAt: otp.ExpiresAt.UTC()},
		"updated_at": time.Now().UTC().Unix(),
	}
	if fullName != "" {
		set["fullname"] = fullName
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "is_verified": false},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("update otp: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either gone or verified in the meantime.
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrUserExists
	}
	return nil
}

func (r *UserRepository) MarkVerified(ctx context.Context, id, codeHash string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "otp.code_hash": codeHash},
		bson.M{
			"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC().Unix()},
			"$unset": bson.M{"otp": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidOTP
		}
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	return toDomainUser(mu), nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toDomainUser(mu), nil
}

func toDomainUser(mu mongoUser) *domain.User {
	u := &domain.User{
		ID:          mu.ID.Hex(),
		FullName:    mu.FullName,
		PhoneNumber: mu.PhoneNumber,
		IsVerified:  mu.IsVerified,
		CreatedAt:   unixToTime(mu.CreatedAt),
		UpdatedAt:   unixToTime(mu.UpdatedAt),
	}
	if mu.OTP != nil {
		u.OTP = &domain.OTP{CodeHash: mu.OTP.CodeHash, ExpiresAt: mu.OTP.ExpiresAt.UTC()}
	}
	return u
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
