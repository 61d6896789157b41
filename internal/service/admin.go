package service

import (
	"context"

	"pharmacy-portal/internal/dto"
	"pharmacy-portal/internal/model"
	"pharmacy-portal/internal/repository"
)

type AdminService interface {
	ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) (*dto.SubmissionListResponse, error)
	SubmissionStats(ctx context.Context, filter repository.SubmissionFilter) (*dto.SubmissionStatsResponse, error)
	UpdateSubmissionStatus(ctx context.Context, id uint, status model.SubmissionStatus) (*model.FormSubmission, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) (*dto.OrderListResponse, error)
}

type adminServiceImpl struct {
	submissionRepo repository.FormSubmissionRepository
	orderRepo      repository.OrderRepository
}

func NewAdminService(submissionRepo repository.FormSubmissionRepository, orderRepo repository.OrderRepository) AdminService {
	return &adminServiceImpl{
		submissionRepo: submissionRepo,
		orderRepo:      orderRepo,
	}
}

func (s *adminServiceImpl) ListSubmissions(ctx context.Context, filter repository.SubmissionFilter) (*dto.SubmissionListResponse, error) {
	if filter.FormType != "" && !filter.FormType.Valid() {
		return nil, validationError("unknown form_type")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationError("unknown status")
	}
	submissions, total, err := s.submissionRepo.List(ctx, filter)
	if err != nil {
		return nil, internalError("list submissions", err)
	}
	return &dto.SubmissionListResponse{Submissions: submissions, Total: total}, nil
}

func (s *adminServiceImpl) SubmissionStats(ctx context.Context, filter repository.SubmissionFilter) (*dto.SubmissionStatsResponse, error) {
	counts, err := s.submissionRepo.CountByType(ctx, filter.From, filter.To)
	if err != nil {
		return nil, internalError("count submissions", err)
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	return &dto.SubmissionStatsResponse{
		From:   filter.From,
		To:     filter.To,
		Counts: counts,
		Total:  total,
	}, nil
}

func (s *adminServiceImpl) UpdateSubmissionStatus(ctx context.Context, id uint, status model.SubmissionStatus) (*model.FormSubmission, error) {
	if !status.Valid() {
		return nil, validationError("unknown status")
	}
	if err := s.submissionRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFoundOr(err, "submission")
	}
	submission, err := s.submissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "submission")
	}
	return submission, nil
}

func (s *adminServiceImpl) ListOrders(ctx context.Context, filter repository.OrderFilter) (*dto.OrderListResponse, error) {
	orders, total, err := s.orderRepo.ListAdmin(ctx, filter)
	if err != nil {
		return nil, internalError("list orders", err)
	}
	return &dto.OrderListResponse{Orders: orders, Total: total}, nil
}
