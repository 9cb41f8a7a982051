package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pixelmint/pixelmint/internal/models"
)

type fakeUsageReader struct {
	total      int
	lastLimit  int
	lastOffset int
	queried    bool
}

func (f *fakeUsageReader) ListPage(ctx context.Context, userID string, limit, offset int) ([]models.UsageRecord, error) {
	f.queried = true
	f.lastLimit = limit
	f.lastOffset = offset

	remaining := f.total - offset
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}
	records := make([]models.UsageRecord, remaining)
	for i := range records {
		records[i] = models.UsageRecord{ID: fmt.Sprintf("u-%d", offset+i)}
	}
	return records, nil
}

func (f *fakeUsageReader) Count(ctx context.Context, userID string) (int, error) {
	f.queried = true
	return f.total, nil
}

type fakeRechargeReader struct {
	total   int
	queried bool
}

func (f *fakeRechargeReader) ListPage(ctx context.Context, userID string, limit, offset int) ([]models.RechargeRecord, error) {
	f.queried = true
	remaining := f.total - offset
	if remaining < 0 {
		remaining = 0
	}
	if remaining > limit {
		remaining = limit
	}
	return make([]models.RechargeRecord, remaining), nil
}

func (f *fakeRechargeReader) Count(ctx context.Context, userID string) (int, error) {
	f.queried = true
	return f.total, nil
}

func TestListUsagePagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		pageSize   int
		wantCount  int
		wantOffset int
		wantPages  int
		wantPage   int
	}{
		{"last partial page", 25, 3, 10, 5, 20, 3, 3},
		{"first page defaults", 25, 0, 0, 10, 0, 3, 1},
		{"middle page", 25, 2, 10, 10, 10, 3, 2},
		{"page past the end", 25, 5, 10, 0, 40, 3, 5},
		{"large page size", 25, 1, 50, 25, 0, 1, 1},
		{"empty history", 0, 1, 10, 0, 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := &fakeUsageReader{total: tt.total}
			svc := NewWalletService(testConfig(), discardLogger(), &fakeProfiles{}, usage, &fakeRechargeReader{})

			records, pg, err := svc.ListUsage(context.Background(), "user-1", tt.page, tt.pageSize)
			if err != nil {
				t.Fatalf("ListUsage: %v", err)
			}

			if len(records) != tt.wantCount {
				t.Errorf("records = %d, want %d", len(records), tt.wantCount)
			}
			if usage.lastOffset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", usage.lastOffset, tt.wantOffset)
			}
			if pg.Total != tt.total {
				t.Errorf("total = %d, want %d", pg.Total, tt.total)
			}
			if pg.TotalPages != tt.wantPages {
				t.Errorf("totalPages = %d, want %d", pg.TotalPages, tt.wantPages)
			}
			if pg.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", pg.Page, tt.wantPage)
			}
		})
	}
}

func TestListUsageRejectsInvalidPageSizeBeforeQuerying(t *testing.T) {
	for _, size := range []int{5, 15, 25, 99, -1} {
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			usage := &fakeUsageReader{total: 25}
			svc := NewWalletService(testConfig(), discardLogger(), &fakeProfiles{}, usage, &fakeRechargeReader{})

			_, _, err := svc.ListUsage(context.Background(), "user-1", 1, size)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if got, want := verr.Error(), "Invalid page size. Must be 10, 20, 50, or 100"; got != want {
				t.Errorf("message = %q, want %q", got, want)
			}
			if usage.queried {
				t.Error("store was queried despite invalid page size")
			}
		})
	}
}

func TestListRecharges(t *testing.T) {
	recharges := &fakeRechargeReader{total: 7}
	svc := NewWalletService(testConfig(), discardLogger(), &fakeProfiles{}, &fakeUsageReader{}, recharges)

	records, pg, err := svc.ListRecharges(context.Background(), "user-1", 1, 10)
	if err != nil {
		t.Fatalf("ListRecharges: %v", err)
	}
	if len(records) != 7 {
		t.Errorf("records = %d, want 7", len(records))
	}
	if pg.TotalPages != 1 {
		t.Errorf("totalPages = %d, want 1", pg.TotalPages)
	}

	_, _, err = svc.ListRecharges(context.Background(), "user-1", 1, 30)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestBalanceCreatesProfileLazily(t *testing.T) {
	profiles := &fakeProfiles{balance: 100}
	svc := NewWalletService(testConfig(), discardLogger(), profiles, &fakeUsageReader{}, &fakeRechargeReader{})

	balance, err := svc.Balance(context.Background(), testUser())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
}
