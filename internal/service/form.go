package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pharmacy-portal/internal/async"
	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/logger"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/pricing"
	"pharmacy-portal/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const receiptTimeout = 30 * time.Second

type FormService interface {
	Submit(ctx context.Context, identity Identity, req *dto.SubmitFormRequest) (*dto.SubmitFormResponse, error)
}

type formServiceImpl struct {
	submissionRepo repository.FormSubmissionRepository
	profileRepo    repository.UserProfileRepository
	cartRepo       repository.CartRepository
	notifier       Notifier
	runner         *async.Runner
	log            *zap.Logger
}

func NewFormService(
	submissionRepo repository.FormSubmissionRepository,
	profileRepo repository.UserProfileRepository,
	cartRepo repository.CartRepository,
	notifier Notifier,
	runner *async.Runner,
	log *zap.Logger,
) FormService {
	return &formServiceImpl{
		submissionRepo: submissionRepo,
		profileRepo:    profileRepo,
		cartRepo:       cartRepo,
		notifier:       notifier,
		runner:         runner,
		log:            log,
	}
}

func (s *formServiceImpl) Submit(ctx context.Context, identity Identity, req *dto.SubmitFormRequest) (*dto.SubmitFormResponse, error) {
	formType := model.FormType(req.FormType)
	if !formType.Valid() {
		return nil, validationError("unknown form_type")
	}
	if len(req.FormData) == 0 {
		return nil, validationError("form_data is required")
	}
	log := logger.FromContext(ctx, s.log).With(
		zap.String("user_id", identity.UserID),
		zap.String("form_type", string(formType)),
	)

	data := sanitizeFormData(req.FormData)

	if err := s.profileRepo.Ensure(ctx, identity.UserID, identity.Email); err != nil {
		return nil, internalError("create user profile", err)
	}

	submission := &model.FormSubmission{
		UserID:   identity.UserID,
		FormType: formType,
		FormData: datatypes.JSONMap(data),
		Status:   model.SubmissionStatusSubmitted,
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return nil, internalError("save submission", err)
	}
	log = log.With(zap.Uint("submission_id", submission.ID))
	log.Info("form submitted")

	resp := &dto.SubmitFormResponse{
		SubmissionID: submission.ID,
		Status:       submission.Status,
	}
	if meds, ok := data["medications"].([]interface{}); ok {
		resp.CartItemsAdded, resp.CartItemsFailed = s.feedCart(ctx, log, submission, meds)
	}

	email := identity.Email
	s.runner.Go("form-receipts", func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
		defer cancel()
		for _, r := range async.Failed(s.notifier.SendFormReceipts(sendCtx, submission, email)) {
			log.Warn("form receipt not sent", zap.String("email", r.Name), zap.Error(r.Err))
		}
	})

	return resp, nil
}

// feedCart adds one prescription line per medication entry. Failures are
// logged per line and counted.
func (s *formServiceImpl) feedCart(ctx context.Context, log *zap.Logger, submission *model.FormSubmission, meds []interface{}) (added, failed int) {
	for i, raw := range meds {
		entry, err := parseMedication(raw)
		if err == nil {
			_, err = s.cartRepo.Add(ctx, &model.CartItem{
				UserID:     submission.UserID,
				ItemName:   entry.Label,
				Quantity:   entry.Quantity,
				PriceAtAdd: entry.Price,
				Metadata: datatypes.JSONMap{
					"form_submission_id": submission.ID,
					"form_type":          string(submission.FormType),
				},
			})
		}
		if err != nil {
			failed++
			log.Warn("medication not added to cart", zap.Int("index", i), zap.Error(err))
			continue
		}
		added++
	}
	return added, failed
}

// parseMedication accepts a structured {"label","price","quantity"} entry or
// a bare label carrying its price as "($45.00)".
func parseMedication(raw interface{}) (*dto.MedicationEntry, error) {
	entry := &dto.MedicationEntry{Quantity: 1}

	switch v := raw.(type) {
	case string:
		entry.Label = strings.TrimSpace(v)
		price, err := pricing.ParseLabelPrice(entry.Label)
		if err != nil {
			return nil, fmt.Errorf("medication %q: %w", entry.Label, err)
		}
		entry.Price = price
	case map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode medication: %w", err)
		}
		var structured struct {
			Label    string           `json:"label"`
			Price    *decimal.Decimal `json:"price"`
			Quantity int              `json:"quantity"`
		}
		if err := json.Unmarshal(b, &structured); err != nil {
			return nil, fmt.Errorf("decode medication: %w", err)
		}
		entry.Label = strings.TrimSpace(structured.Label)
		if structured.Quantity != 0 {
			entry.Quantity = structured.Quantity
		}
		if structured.Price != nil {
			entry.Price = structured.Price.Round(2)
		} else {
			price, err := pricing.ParseLabelPrice(entry.Label)
			if err != nil {
				return nil, fmt.Errorf("medication %q: %w", entry.Label, err)
			}
			entry.Price = price
		}
	default:
		return nil, fmt.Errorf("unsupported medication entry %T", raw)
	}

	if entry.Label == "" {
		return nil, fmt.Errorf("medication label is empty")
	}
	if entry.Quantity < 1 {
		return nil, fmt.Errorf("medication %q: quantity must be at least 1", entry.Label)
	}
	if entry.Price.IsNegative() {
		return nil, fmt.Errorf("medication %q: negative price", entry.Label)
	}
	return entry, nil
}

// sanitizeFormData drops values that cannot be stored as JSON.
func sanitizeFormData(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		if clean, ok := sanitizeValue(v); ok {
			out[k] = clean
		}
	}
	return out
}

func sanitizeValue(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return sanitizeFormData(t), true
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			if clean, ok := sanitizeValue(item); ok {
				out = append(out, clean)
			}
		}
		return out, true
	}
	if _, err := json.Marshal(v); err != nil {
		return nil, false
	}
	return v, true
}
