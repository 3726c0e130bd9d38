package pending

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/internal/earnings"
	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
)

// EligibleItem pairs a payable line item with its computed payout amount.
// Amount keeps full precision; rounding happens at batch item persistence.
type EligibleItem struct {
	Item   models.LineItem
	Amount decimal.Decimal
}

// Resolution is the outcome of an eligibility run. Items whose payout rule is
// undetermined land in NeedsPricing and contribute nothing to TotalAmount;
// an unresolved rule is an actionable signal, never a silent zero.
type Resolution struct {
	Items        []EligibleItem
	TotalAmount  decimal.Decimal
	NeedsPricing []models.LineItem

	// CandidateCount is how many items matched the eligibility invariant
	// before the batch set-difference. Callers use it to tell "nothing to
	// settle" apart from "everything already settled".
	CandidateCount int64
}

// Service computes the set of line items eligible for a vendor payout.
type Service interface {
	FindEligible(ctx context.Context, vendorName string, dateRange *DateRange) (*Resolution, error)
}

type service struct {
	repo  Repository
	rules payoutrules.Service
}

// NewService wires a pending item resolver with its dependencies.
func NewService(repo Repository, rules payoutrules.Service) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pending repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("payout rule service required")
	}
	return &service{repo: repo, rules: rules}, nil
}

func (s *service) FindEligible(ctx context.Context, vendorName string, dateRange *DateRange) (*Resolution, error) {
	if strings.TrimSpace(vendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	if dateRange != nil && !dateRange.From.IsZero() && !dateRange.To.IsZero() && dateRange.To.Before(dateRange.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end before start")
	}

	candidates, err := s.repo.CountCandidates(ctx, vendorName, dateRange)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count eligible candidates")
	}

	items, err := s.repo.ListUnbatched(ctx, vendorName, dateRange)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list unbatched line items")
	}

	resolution := &Resolution{
		TotalAmount:    decimal.Zero,
		CandidateCount: candidates,
	}
	if len(items) == 0 {
		return resolution, nil
	}

	rules, err := s.rules.ResolveForVendor(ctx, vendorName)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		rule, ok := rules[item.ProductID]
		if !ok {
			resolution.NeedsPricing = append(resolution.NeedsPricing, item)
			continue
		}
		amount := earnings.ComputeForItem(item, rule)
		resolution.Items = append(resolution.Items, EligibleItem{Item: item, Amount: amount})
		resolution.TotalAmount = resolution.TotalAmount.Add(amount)
	}
	return resolution, nil
}
