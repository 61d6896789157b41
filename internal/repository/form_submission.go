package repository

import (
	"context"
	"time"

	"pharmacy-portal/internal/model"

	"gorm.io/gorm"
)

type SubmissionFilter struct {
	FormType model.FormType
	Status   model.SubmissionStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

type FormSubmissionRepository interface {
	Create(ctx context.Context, submission *model.FormSubmission) error
	FindByID(ctx context.Context, id uint) (*model.FormSubmission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]*model.FormSubmission, int64, error)
	CountByType(ctx context.Context, from, to *time.Time) (map[model.FormType]int64, error)
	UpdateStatus(ctx context.Context, id uint, status model.SubmissionStatus) error
}

type formSubmissionRepoImpl struct {
	db *gorm.DB
}

func NewFormSubmissionRepository(db *gorm.DB) FormSubmissionRepository {
	return &formSubmissionRepoImpl{db: db}
}

func (r *formSubmissionRepoImpl) Create(ctx context.Context, submission *model.FormSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *formSubmissionRepoImpl) FindByID(ctx context.Context, id uint) (*model.FormSubmission, error) {
	var submission model.FormSubmission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func inRange(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}
	return q
}

func (r *formSubmissionRepoImpl) List(ctx context.Context, filter SubmissionFilter) ([]*model.FormSubmission, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.FormSubmission{})
	if filter.FormType != "" {
		q = q.Where("form_type = ?", filter.FormType)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	q = inRange(q, filter.From, filter.To)

	// reused for the count and the page query
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []*model.FormSubmission
	err := q.Order("created_at DESC").
		Limit(ClampLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&submissions).Error
	if err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

func (r *formSubmissionRepoImpl) CountByType(ctx context.Context, from, to *time.Time) (map[model.FormType]int64, error) {
	var rows []struct {
		FormType model.FormType
		Count    int64
	}
	q := inRange(r.db.WithContext(ctx).Model(&model.FormSubmission{}), from, to)
	err := q.Select("form_type, COUNT(*) AS count").
		Group("form_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.FormType]int64, len(model.FormTypes))
	for _, ft := range model.FormTypes {
		counts[ft] = 0
	}
	for _, row := range rows {
		counts[row.FormType] = row.Count
	}
	return counts, nil
}

func (r *formSubmissionRepoImpl) UpdateStatus(ctx context.Context, id uint, status model.SubmissionStatus) error {
	res := r.db.WithContext(ctx).Model(&model.FormSubmission{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
