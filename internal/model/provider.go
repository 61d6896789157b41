package model

import "time"

type ProviderStatus string

const (
	ProviderStatusPendingSignature  ProviderStatus = "pending_signature"
	ProviderStatusSignatureSent     ProviderStatus = "signature_sent"
	ProviderStatusSignatureOpened   ProviderStatus = "signature_opened"
	ProviderStatusSignatureReceived ProviderStatus = "signature_received"
	ProviderStatusSignatureDeclined ProviderStatus = "signature_declined"
	ProviderStatusSignatureExpired  ProviderStatus = "signature_expired"
	ProviderStatusRejected          ProviderStatus = "rejected"
	ProviderStatusSuspended         ProviderStatus = "suspended"
)

func (s ProviderStatus) Valid() bool {
	_, ok := providerStatusRank[s]
	return ok
}

// rank orders the signature lifecycle; terminal states share the top rank.
var providerStatusRank = map[ProviderStatus]int{
	ProviderStatusPendingSignature:  0,
	ProviderStatusSignatureSent:     1,
	ProviderStatusSignatureOpened:   2,
	ProviderStatusSignatureReceived: 3,
	ProviderStatusSignatureDeclined: 3,
	ProviderStatusSignatureExpired:  3,
	ProviderStatusRejected:          4,
	ProviderStatusSuspended:         4,
}

func (s ProviderStatus) Terminal() bool {
	return providerStatusRank[s] >= 3
}

// CanAdvanceTo reports whether an e-signature callback may move an account
// from s to next. Transitions only move forward and terminal states absorb.
func (s ProviderStatus) CanAdvanceTo(next ProviderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	return providerStatusRank[next] > providerStatusRank[s]
}

type ProviderAccount struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	BusinessName        string         `gorm:"size:255;not null" json:"business_name"`
	ContactName         string         `gorm:"size:255" json:"contact_name"`
	Email               string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone               string         `gorm:"size:64" json:"phone"`
	NPI                 string         `gorm:"size:32" json:"npi"`
	Status              ProviderStatus `gorm:"size:32;index;not null" json:"status"`
	ESignSubmissionID   string         `gorm:"size:64;index" json:"esign_submission_id"`
	ESignSubmitterID    string         `gorm:"size:64" json:"esign_submitter_id"`
	SignatureSentAt     *time.Time     `json:"signature_sent_at"`
	SignatureOpenedAt   *time.Time     `json:"signature_opened_at"`
	SignatureReceivedAt *time.Time     `json:"signature_received_at"`
	SignatureDeclinedAt *time.Time     `json:"signature_declined_at"`
	SignatureExpiredAt  *time.Time     `json:"signature_expired_at"`
	StatusChangedAt     *time.Time     `json:"status_changed_at"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
