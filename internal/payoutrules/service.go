package payoutrules

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
)

// Service resolves payout rules for (product, vendor) pairs. An absent rule is
// a legitimate outcome ("undetermined"), distinct from a zero payout, and is
// returned as a nil rule with no error.
type Service interface {
	Resolve(ctx context.Context, productID uuid.UUID, vendorName string) (*models.PayoutRule, error)
	ResolveForVendor(ctx context.Context, vendorName string) (map[uuid.UUID]models.PayoutRule, error)
	Upsert(ctx context.Context, input UpsertRuleInput) (*models.PayoutRule, error)
	ListRules(ctx context.Context, vendorName string) ([]models.PayoutRule, error)
}

// UpsertRuleInput carries a replacement rule for a (product, vendor) pair.
type UpsertRuleInput struct {
	ProductID    uuid.UUID
	VendorName   string
	PayoutAmount decimal.Decimal
	IsPercentage bool
}

type service struct {
	repo Repository
}

// NewService wires a payout rule service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payout rule repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Resolve(ctx context.Context, productID uuid.UUID, vendorName string) (*models.PayoutRule, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if strings.TrimSpace(vendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}

	rule, err := s.repo.FindByProductVendor(ctx, productID, vendorName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout rule")
	}
	return rule, nil
}

// ResolveForVendor loads every rule for the vendor keyed by product id, so
// batch-sized callers avoid a query per line item.
func (s *service) ResolveForVendor(ctx context.Context, vendorName string) (map[uuid.UUID]models.PayoutRule, error) {
	if strings.TrimSpace(vendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}

	rules, err := s.repo.ListByVendor(ctx, vendorName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout rules")
	}

	byProduct := make(map[uuid.UUID]models.PayoutRule, len(rules))
	for _, rule := range rules {
		byProduct[rule.ProductID] = rule
	}
	return byProduct, nil
}

// Upsert replaces the rule for a (product, vendor) pair, creating it when
// absent. Percentage rules are bounded to (0, 100]; flat rules only need a
// positive amount.
func (s *service) Upsert(ctx context.Context, input UpsertRuleInput) (*models.PayoutRule, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	vendor := strings.TrimSpace(input.VendorName)
	if vendor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	if !input.PayoutAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	if input.IsPercentage && input.PayoutAmount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage payout cannot exceed 100")
	}

	rule := &models.PayoutRule{
		ProductID:    input.ProductID,
		VendorName:   vendor,
		PayoutAmount: input.PayoutAmount,
		IsPercentage: input.IsPercentage,
	}
	if err := s.repo.Upsert(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert payout rule")
	}
	return rule, nil
}

func (s *service) ListRules(ctx context.Context, vendorName string) ([]models.PayoutRule, error) {
	if strings.TrimSpace(vendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	rules, err := s.repo.ListByVendor(ctx, vendorName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout rules")
	}
	return rules, nil
}
