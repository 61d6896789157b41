package repository

import (
	"context"

	"pharmacy-portal/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserProfileRepository interface {
	// Ensure creates the profile on first use and is a no-op afterwards.
	Ensure(ctx context.Context, userID, email string) error
}

type userProfileRepoImpl struct {
	db *gorm.DB
}

func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepoImpl{db: db}
}

func (r *userProfileRepoImpl) Ensure(ctx context.Context, userID, email string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserProfile{UserID: userID, Email: email}).Error
}
