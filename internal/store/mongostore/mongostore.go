// Package mongostore keeps users as documents in a MongoDB collection. Every
// token-consuming write is a single UpdateOne whose filter carries the token
// hash, so the document-level atomicity of MongoDB gives the same
// compare-and-swap guarantee as the SQL store.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"identity/internal/domain"
	"identity/internal/service"
	"identity/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

var _ service.UserRepository = (*UserStore)(nil)

// userDoc stores token expiries as BSON dates; the domain keeps unix millis
// with 0 meaning no pending token.
type userDoc struct {
	ID                   string    `bson:"_id"`
	FirstName            string    `bson:"firstName"`
	LastName             string    `bson:"lastName"`
	Email                string    `bson:"email"`
	Username             string    `bson:"username"`
	DateOfBirth          time.Time `bson:"dateOfBirth"`
	Role                 string    `bson:"role"`
	PasswordHash         string    `bson:"password"`
	EmailVerified        bool      `bson:"emailVerified"`
	EmailVerifyHash      string    `bson:"emailVerifiedToken,omitempty"`
	EmailVerifyExpires   time.Time `bson:"emailVerifyExpires,omitempty"`
	ResetPasswordHash    string    `bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires time.Time `bson:"resetPasswordExpires,omitempty"`
	RefreshToken         string    `bson:"token"`
	CreatedAt            time.Time `bson:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt"`
}

type UserStore struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

// Connect dials MongoDB and pings it before returning.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique username index and the lookup indexes.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
		{Keys: bson.D{{Key: "token", Value: 1}}},
		{Keys: bson.D{{Key: "emailVerifiedToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return err
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, err := s.coll.InsertOne(ctx, toDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, store.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{"token": token})
}

func (s *UserStore) GetByVerificationHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	if hash == "" {
		return nil, store.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{
		"emailVerifiedToken": hash,
		"emailVerifyExpires": bson.M{"$gt": now.UTC()},
	})
}

func (s *UserStore) GetByResetHash(ctx context.Context, hash string, now time.Time) (*domain.User, error) {
	if hash == "" {
		return nil, store.ErrRecordNotFound
	}
	return s.findOne(ctx, bson.M{
		"resetPasswordToken":   hash,
		"resetPasswordExpires": bson.M{"$gt": now.UTC()},
	})
}

func (s *UserStore) ConsumeVerification(ctx context.Context, id domain.UserID, hash string, now time.Time) error {
	return s.updateOne(ctx,
		bson.M{
			"_id":                id.String(),
			"emailVerifiedToken": hash,
			"emailVerifyExpires": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$set":   bson.M{"emailVerified": true, "updatedAt": now.UTC()},
			"$unset": bson.M{"emailVerifiedToken": "", "emailVerifyExpires": ""},
		})
}

func (s *UserStore) SetResetToken(ctx context.Context, id domain.UserID, hash string, expires time.Time) error {
	return s.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{
		"resetPasswordToken":   hash,
		"resetPasswordExpires": expires.UTC(),
		"updatedAt":            time.Now().UTC(),
	}})
}

func (s *UserStore) CompletePasswordReset(ctx context.Context, id domain.UserID, hash, passwordHash string, now time.Time) error {
	return s.updateOne(ctx,
		bson.M{
			"_id":                  id.String(),
			"resetPasswordToken":   hash,
			"resetPasswordExpires": bson.M{"$gt": now.UTC()},
		},
		bson.M{
			"$set":   bson.M{"password": passwordHash, "updatedAt": now.UTC()},
			"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""},
		})
}

func (s *UserStore) SetRefreshToken(ctx context.Context, id domain.UserID, token string) error {
	return s.updateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{
		"token":     token,
		"updatedAt": time.Now().UTC(),
	}})
}

func (s *UserStore) ClearRefreshToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	res, err := s.coll.UpdateMany(ctx, bson.M{"token": token}, bson.M{"$set": bson.M{
		"token":     "",
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return 0, fmt.Errorf("clear refresh token: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *UserStore) UpdatePasswordHash(ctx context.Context, id domain.UserID, oldHash, newHash string) error {
	return s.updateOne(ctx, bson.M{"_id": id.String(), "password": oldHash}, bson.M{"$set": bson.M{
		"password":  newHash,
		"updatedAt": time.Now().UTC(),
	}})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return fromDoc(&doc)
}

func (s *UserStore) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrRecordNotFound
	}
	return nil
}

func toDoc(u *domain.User) *userDoc {
	return &userDoc{
		ID:                   u.ID.String(),
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Email:                u.Email,
		Username:             u.Username,
		DateOfBirth:          u.DateOfBirth,
		Role:                 string(u.Role),
		PasswordHash:         u.PasswordHash,
		EmailVerified:        u.EmailVerified,
		EmailVerifyHash:      u.EmailVerifyHash,
		EmailVerifyExpires:   fromMillis(u.EmailVerifyExpires),
		ResetPasswordHash:    u.ResetPasswordHash,
		ResetPasswordExpires: fromMillis(u.ResetPasswordExpires),
		RefreshToken:         u.RefreshToken,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func fromDoc(d *userDoc) (*domain.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode user id %q: %w", d.ID, err)
	}
	return &domain.User{
		ID:                   id,
		FirstName:            d.FirstName,
		LastName:             d.LastName,
		Email:                d.Email,
		Username:             d.Username,
		DateOfBirth:          d.DateOfBirth,
		Role:                 domain.Role(d.Role),
		PasswordHash:         d.PasswordHash,
		EmailVerified:        d.EmailVerified,
		EmailVerifyHash:      d.EmailVerifyHash,
		EmailVerifyExpires:   toMillis(d.EmailVerifyExpires),
		ResetPasswordHash:    d.ResetPasswordHash,
		ResetPasswordExpires: toMillis(d.ResetPasswordExpires),
		RefreshToken:         d.RefreshToken,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
