package service

import (
	"context"
	"log/slog"

	"github.com/pixelmint/pixelmint/internal/config"
	"github.com/pixelmint/pixelmint/internal/identity"
	"github.com/pixelmint/pixelmint/internal/models"
)

var validPageSizes = map[int]bool{10: true, 20: true, 50: true, 100: true}

// Pagination describes one page of a history listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type UsageStoreReader interface {
	ListPage(ctx context.Context, userID string, limit, offset int) ([]models.UsageRecord, error)
	Count(ctx context.Context, userID string) (int, error)
}

type RechargeStoreReader interface {
	ListPage(ctx context.Context, userID string, limit, offset int) ([]models.RechargeRecord, error)
	Count(ctx context.Context, userID string) (int, error)
}

type WalletService struct {
	cfg       config.Config
	log       *slog.Logger
	profiles  ProfileStore
	usage     UsageStoreReader
	recharges RechargeStoreReader
}

func NewWalletService(cfg config.Config, log *slog.Logger, profiles ProfileStore, usage UsageStoreReader, recharges RechargeStoreReader) *WalletService {
	return &WalletService{
		cfg:       cfg,
		log:       log,
		profiles:  profiles,
		usage:     usage,
		recharges: recharges,
	}
}

// Balance returns the user's credit balance, creating the profile with the
// starting allowance on first contact.
func (s *WalletService) Balance(ctx context.Context, user *identity.User) (int, error) {
	profile, created, err := s.profiles.Ensure(ctx, user.ID, user.Email, user.FullName(), user.AvatarURL(), s.cfg.InitialCredits)
	if err != nil {
		return 0, err
	}
	if created {
		s.log.Info("profile created", "user_id", user.ID, "initial_credits", s.cfg.InitialCredits)
	}
	return profile.CreditsBalance, nil
}

// ListUsage returns one page of usage history, most recent first.
func (s *WalletService) ListUsage(ctx context.Context, userID string, page, pageSize int) ([]models.UsageRecord, Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, Pagination{}, err
	}

	total, err := s.usage.Count(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}
	records, err := s.usage.ListPage(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, Pagination{}, err
	}
	return records, paginate(page, pageSize, total), nil
}

// ListRecharges returns one page of recharge history, most recent first.
func (s *WalletService) ListRecharges(ctx context.Context, userID string, page, pageSize int) ([]models.RechargeRecord, Pagination, error) {
	page, pageSize, err := normalizePage(page, pageSize)
	if err != nil {
		return nil, Pagination{}, err
	}

	total, err := s.recharges.Count(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}
	records, err := s.recharges.ListPage(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, Pagination{}, err
	}
	return records, paginate(page, pageSize, total), nil
}

// normalizePage rejects page sizes outside the enumerated set before any
// query runs.
func normalizePage(page, pageSize int) (int, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = 10
	}
	if !validPageSizes[pageSize] {
		return 0, 0, validationErrorf("Invalid page size. Must be 10, 20, 50, or 100")
	}
	return page, pageSize, nil
}

func paginate(page, pageSize, total int) Pagination {
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
