package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pharmacy-portal/internal/client"
	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/metrics"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// esignTransitions maps e-signature callback types to the state they move an
// account to.
var esignTransitions = map[string]model.ProviderStatus{
	"submission.created":   model.ProviderStatusSignatureSent,
	"form.viewed":          model.ProviderStatusSignatureOpened,
	"form.started":         model.ProviderStatusSignatureOpened,
	"submission.completed": model.ProviderStatusSignatureReceived,
	"form.declined":        model.ProviderStatusSignatureDeclined,
	"submission.archived":  model.ProviderStatusSignatureDeclined,
	"submission.expired":   model.ProviderStatusSignatureExpired,
}

var statusTimestampColumn = map[model.ProviderStatus]string{
	model.ProviderStatusSignatureSent:     "signature_sent_at",
	model.ProviderStatusSignatureOpened:   "signature_opened_at",
	model.ProviderStatusSignatureReceived: "signature_received_at",
	model.ProviderStatusSignatureDeclined: "signature_declined_at",
	model.ProviderStatusSignatureExpired:  "signature_expired_at",
}

type ProviderService interface {
	Signup(ctx context.Context, req *dto.ProviderSignupRequest) (*model.ProviderAccount, error)
	HandleESignWebhook(ctx context.Context, headers http.Header, body []byte) error
	// SetStatus is the admin override; it may move an account to any state.
	SetStatus(ctx context.Context, providerID uint, status model.ProviderStatus) (*model.ProviderAccount, error)
}

type providerServiceImpl struct {
	providerRepo repository.ProviderRepository
	esignClient  client.ESignClient
	metrics      *metrics.Metrics
	log          *zap.Logger
	now          func() time.Time
}

func NewProviderService(
	providerRepo repository.ProviderRepository,
	esignClient client.ESignClient,
	m *metrics.Metrics,
	log *zap.Logger,
) ProviderService {
	return &providerServiceImpl{
		providerRepo: providerRepo,
		esignClient:  esignClient,
		metrics:      m,
		log:          log,
		now:          time.Now,
	}
}

func (s *providerServiceImpl) Signup(ctx context.Context, req *dto.ProviderSignupRequest) (*model.ProviderAccount, error) {
	email := normalizeEmail(req.Email)
	if strings.TrimSpace(req.BusinessName) == "" {
		return nil, validationError("business_name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, validationError("a valid email is required")
	}

	if _, err := s.providerRepo.FindByEmail(ctx, email); err == nil {
		return nil, validationError("a provider with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internalError("look up provider", err)
	}

	account := &model.ProviderAccount{
		BusinessName: strings.TrimSpace(req.BusinessName),
		ContactName:  strings.TrimSpace(req.ContactName),
		Email:        email,
		Phone:        req.Phone,
		NPI:          req.NPI,
		Status:       model.ProviderStatusPendingSignature,
	}
	if err := s.providerRepo.Create(ctx, account); err != nil {
		return nil, internalError("create provider", err)
	}
	log := logger.FromContext(ctx, s.log).With(zap.Uint("provider_id", account.ID))

	if !s.esignClient.Enabled() {
		log.Info("e-sign not configured, provider left pending signature")
		return account, nil
	}

	name := account.ContactName
	if name == "" {
		name = account.BusinessName
	}
	sub, err := s.esignClient.CreateSubmission(ctx, &client.CreateSubmissionRequest{Name: name, Email: account.Email})
	if err != nil {
		// the application is kept; an admin can resend the agreement
		log.Error("failed to request provider signature", zap.Error(err))
		return account, nil
	}

	err = s.providerRepo.UpdateFields(ctx, account.ID, map[string]interface{}{
		"esign_submission_id": sub.SubmissionID,
		"esign_submitter_id":  sub.SubmitterID,
	})
	if err != nil {
		log.Error("failed to store e-sign submission", zap.String("submission_id", sub.SubmissionID), zap.Error(err))
		return account, nil
	}
	account.ESignSubmissionID = sub.SubmissionID
	account.ESignSubmitterID = sub.SubmitterID
	return account, nil
}

func (s *providerServiceImpl) HandleESignWebhook(ctx context.Context, headers http.Header, body []byte) error {
	log := logger.FromContext(ctx, s.log)
	source := string(model.WebhookSourceESign)

	if err := s.esignClient.VerifyWebhookSignature(headers, body); err != nil {
		log.Warn("rejected e-sign webhook", zap.Error(err))
		s.metrics.ObserveWebhook(source, "unverified", err)
		return newError(KindValidation, "invalid signature", fmt.Errorf("%w: %v", ErrInvalidSignature, err))
	}

	var event model.ESignEvent
	if err := json.Unmarshal(body, &event); err != nil || event.EventType == "" {
		return validationError("malformed payload")
	}
	log = log.With(zap.String("event_type", event.EventType))

	err := s.applyESignEvent(ctx, log, &event)
	s.metrics.ObserveWebhook(source, event.EventType, err)
	if err != nil {
		// the callback was valid; a retry would not help
		log.Error("e-sign webhook processing failed", zap.Error(err))
	}
	return nil
}

func (s *providerServiceImpl) applyESignEvent(ctx context.Context, log *zap.Logger, event *model.ESignEvent) error {
	next, ok := esignTransitions[event.EventType]
	if !ok {
		log.Debug("ignoring e-sign event type")
		return nil
	}

	account, err := s.matchAccount(ctx, event)
	if err != nil {
		return err
	}
	if account == nil {
		log.Warn("e-sign event matches no provider account")
		return nil
	}
	log = log.With(zap.Uint("provider_id", account.ID), zap.String("from", string(account.Status)))

	if !account.Status.CanAdvanceTo(next) {
		log.Info("ignoring out-of-order e-sign transition", zap.String("to", string(next)))
		return nil
	}

	if err := s.providerRepo.UpdateFields(ctx, account.ID, s.statusFields(next)); err != nil {
		return fmt.Errorf("update provider status: %w", err)
	}
	log.Info("provider status changed", zap.String("to", string(next)))
	return nil
}

// matchAccount resolves the account by submission id, falling back to the
// submitter email.
func (s *providerServiceImpl) matchAccount(ctx context.Context, event *model.ESignEvent) (*model.ProviderAccount, error) {
	submissionID := event.Data.ID
	if strings.HasPrefix(event.EventType, "form.") {
		submissionID = event.Data.SubmissionID
	}
	if submissionID != 0 {
		account, err := s.providerRepo.FindBySubmissionID(ctx, fmt.Sprint(submissionID))
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find provider by submission: %w", err)
		}
	}

	emails := []string{event.Data.Email}
	for _, sub := range event.Data.Submitters {
		emails = append(emails, sub.Email)
	}
	for _, email := range emails {
		email = normalizeEmail(email)
		if email == "" {
			continue
		}
		account, err := s.providerRepo.FindByEmail(ctx, email)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find provider by email: %w", err)
		}
	}
	return nil, nil
}

func (s *providerServiceImpl) statusFields(status model.ProviderStatus) map[string]interface{} {
	now := s.now()
	fields := map[string]interface{}{
		"status":            status,
		"status_changed_at": now,
	}
	if col, ok := statusTimestampColumn[status]; ok {
		fields[col] = now
	}
	return fields
}

func (s *providerServiceImpl) SetStatus(ctx context.Context, providerID uint, status model.ProviderStatus) (*model.ProviderAccount, error) {
	if !status.Valid() {
		return nil, validationError("unknown provider status")
	}
	if err := s.providerRepo.UpdateFields(ctx, providerID, s.statusFields(status)); err != nil {
		return nil, notFoundOr(err, "provider")
	}
	account, err := s.providerRepo.FindByID(ctx, providerID)
	if err != nil {
		return nil, notFoundOr(err, "provider")
	}
	logger.FromContext(ctx, s.log).Info("provider status set by admin",
		zap.Uint("provider_id", providerID), zap.String("status", string(status)))
	return account, nil
}
