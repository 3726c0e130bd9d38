package refunds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luisarteaga/marketdesk-backend/internal/earnings"
	"github.com/luisarteaga/marketdesk-backend/internal/payoutrules"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/metrics"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service applies refunds to line items. A refund on an item that is still
// pending simply reduces the payout base; a refund on an item already paid in
// a completed batch additionally records a payout deduction, because completed
// batches are never rewritten.
type Service interface {
	ApplyRefund(ctx context.Context, input ApplyRefundInput) (*ApplyRefundResult, error)
	ListOpenDeductions(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error)
}

type service struct {
	repo         Repository
	rules        payoutrules.Service
	tx           txRunner
	outbox       outboxPublisher
	metrics      *metrics.PayoutMetrics
	storeTimeout time.Duration
}

// ApplyRefundInput describes one incoming refund. Amount is required for
// partial refunds and ignored for full ones.
type ApplyRefundInput struct {
	LineItemID uuid.UUID
	Type       enums.RefundType
	Amount     *decimal.Decimal
	AdminID    string
}

// ApplyRefundResult reports the refund outcome, including any deduction
// carried forward against the vendor's next settlement.
type ApplyRefundResult struct {
	Item            *models.LineItem
	DeductionOwed   bool
	DeductionAmount decimal.Decimal
	SettledBatchID  *uuid.UUID
}

// NewService builds a refund service with the required dependencies.
func NewService(repo Repository, rules payoutrules.Service, tx txRunner, ob outboxPublisher, payoutMetrics *metrics.PayoutMetrics, cfg config.SettlementConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("payout rule resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &service{
		repo:         repo,
		rules:        rules,
		tx:           tx,
		outbox:       ob,
		metrics:      payoutMetrics,
		storeTimeout: timeout,
	}, nil
}

func (s *service) ApplyRefund(ctx context.Context, input ApplyRefundInput) (*ApplyRefundResult, error) {
	if input.LineItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid refund type")
	}
	if input.AdminID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if input.Type == enums.RefundTypePartial {
		if input.Amount == nil || !input.Amount.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "partial refund requires a positive amount")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	result := &ApplyRefundResult{DeductionAmount: decimal.Zero}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindLineItem(ctx, input.LineItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "line item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line item")
		}

		target := input.Type.TargetStatus()
		if !item.RefundStatus.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refund transition not permitted").
				WithDetails(map[string]any{
					"current": item.RefundStatus,
					"target":  target,
				})
		}

		refunded := item.Price
		if input.Type == enums.RefundTypePartial {
			refunded = *input.Amount
			if refunded.GreaterThanOrEqual(item.Price) {
				return pkgerrors.New(pkgerrors.CodeValidation, "partial amount covers the full price, use a full refund")
			}
		}

		settled, err := repo.FindSettledBatchItem(ctx, input.LineItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check settled batch item")
		}
		if settled != nil {
			deduction, err := s.deductionAmount(ctx, item, settled, input.Type, refunded)
			if err != nil {
				return err
			}
			if deduction.IsPositive() {
				if err := repo.UpsertDeduction(ctx, &models.PayoutDeduction{
					VendorName:     item.VendorName,
					LineItemID:     item.ID,
					Amount:         deduction,
					SettledBatchID: settled.BatchID,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout deduction")
				}
				result.DeductionOwed = true
				result.DeductionAmount = deduction
				batchID := settled.BatchID
				result.SettledBatchID = &batchID
			}
		}

		if err := repo.UpdateRefund(ctx, item.ID, target, refunded); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund state")
		}
		item.RefundStatus = target
		item.RefundedAmount = &refunded
		result.Item = item

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundApplied,
			AggregateType: enums.AggregateLineItem,
			AggregateID:   item.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{AdminID: input.AdminID, Vendor: item.VendorName},
			Data: payloads.RefundAppliedEvent{
				LineItemID:     item.ID,
				OrderID:        item.OrderID,
				VendorName:     item.VendorName,
				RefundType:     input.Type,
				Amount:         refunded.String(),
				DeductionOwed:  result.DeductionOwed,
				SettledBatchID: result.SettledBatchID,
				ResultStatus:   target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRefundApplied(input.Type.String())
	return result, nil
}

// deductionAmount computes what the vendor owes back. A full refund claws back
// the entire frozen payout. A partial refund claws back the difference between
// the frozen payout and the payout recomputed on the reduced base, which needs
// the rule; a paid item whose rule has since disappeared cannot be partially
// refunded until pricing is restored.
func (s *service) deductionAmount(ctx context.Context, item *models.LineItem, settled *models.BatchItem, refundType enums.RefundType, refunded decimal.Decimal) (decimal.Decimal, error) {
	if refundType == enums.RefundTypeFull {
		return settled.Amount, nil
	}

	rule, err := s.rules.Resolve(ctx, item.ProductID, item.VendorName)
	if err != nil {
		return decimal.Zero, err
	}
	if rule == nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "payout rule undetermined for paid item").
			WithDetails(map[string]any{"line_item_id": item.ID, "product_id": item.ProductID})
	}

	base := item.Price.Sub(refunded)
	if base.IsNegative() {
		base = decimal.Zero
	}
	recomputed := earnings.RoundForSettlement(earnings.Compute(base, *rule))
	deduction := settled.Amount.Sub(recomputed)
	if deduction.IsNegative() {
		return decimal.Zero, nil
	}
	return deduction, nil
}

func (s *service) ListOpenDeductions(ctx context.Context, vendorName string) ([]models.PayoutDeduction, error) {
	if strings.TrimSpace(vendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	deductions, err := s.repo.ListOpenDeductions(ctx, vendorName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout deductions")
	}
	return deductions, nil
}
