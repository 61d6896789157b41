package model

import (
	"time"

	"gorm.io/datatypes"
)

type FormType string

const (
	FormTypeWeightLoss           FormType = "weight_loss"
	FormTypePeptides             FormType = "peptides"
	FormTypeSterile              FormType = "sterile"
	FormTypeDermatology          FormType = "dermatology"
	FormTypeControlledSubstances FormType = "controlled_substances"
	FormTypeMedicationSelection  FormType = "medication_selection"
)

var FormTypes = []FormType{
	FormTypeWeightLoss,
	FormTypePeptides,
	FormTypeSterile,
	FormTypeDermatology,
	FormTypeControlledSubstances,
	FormTypeMedicationSelection,
}

func (t FormType) Valid() bool {
	for _, ft := range FormTypes {
		if t == ft {
			return true
		}
	}
	return false
}

type SubmissionStatus string

const (
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusInReview  SubmissionStatus = "in_review"
	SubmissionStatusApproved  SubmissionStatus = "approved"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusInReview, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	}
	return false
}

type FormSubmission struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    string            `gorm:"size:64;index;not null" json:"user_id"`
	FormType  FormType          `gorm:"size:64;index;not null" json:"form_type"`
	FormData  datatypes.JSONMap `gorm:"not null" json:"form_data"`
	Status    SubmissionStatus  `gorm:"size:32;index;not null" json:"status"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// UserProfile is created lazily the first time a user submits a form.
type UserProfile struct {
	UserID    string `gorm:"primaryKey;size:64"`
	Email     string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
