package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-bookings/internal/domain"
	"github.com/robertarktes/travel-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserDirectory struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewUserDirectory(db *mongo.Database, logger observability.Logger) *UserDirectory {
	return &UserDirectory{
		coll:   db.Collection("users"),
		logger: logger,
	}
}

type UserDoc struct {
	ID       uuid.UUID `bson:"_id"`
	Username string    `bson:"username"`
	Email    string    `bson:"email"`
	Role     string    `bson:"role,omitempty"`
}

func (u *UserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var doc UserDoc
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFoundf("user not found")
	}
	if err != nil {
		u.logger.Error("failed to get user", err)
		return nil, err
	}
	return &domain.User{ID: doc.ID, Username: doc.Username, Email: doc.Email, Role: doc.Role}, nil
}
