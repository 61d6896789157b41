package repository

import (
	"context"

	"pharmacy-portal/internal/model"

	"gorm.io/gorm"
)

type ProviderRepository interface {
	Create(ctx context.Context, account *model.ProviderAccount) error
	FindByID(ctx context.Context, id uint) (*model.ProviderAccount, error)
	FindBySubmissionID(ctx context.Context, submissionID string) (*model.ProviderAccount, error)
	FindByEmail(ctx context.Context, email string) (*model.ProviderAccount, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
}

type providerRepoImpl struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepoImpl{db: db}
}

func (r *providerRepoImpl) Create(ctx context.Context, account *model.ProviderAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *providerRepoImpl) FindByID(ctx context.Context, id uint) (*model.ProviderAccount, error) {
	var account model.ProviderAccount
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *providerRepoImpl) FindBySubmissionID(ctx context.Context, submissionID string) (*model.ProviderAccount, error) {
	var account model.ProviderAccount
	err := r.db.WithContext(ctx).
		Where("esign_submission_id = ?", submissionID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *providerRepoImpl) FindByEmail(ctx context.Context, email string) (*model.ProviderAccount, error) {
	var account model.ProviderAccount
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *providerRepoImpl) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.ProviderAccount{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	// mysql reports zero affected rows when the values are unchanged
	if res.RowsAffected == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}
	return nil
}
