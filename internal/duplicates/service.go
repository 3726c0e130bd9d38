package duplicates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

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

// Service detects duplicate line items within an order and applies the
// admin-driven bulk status corrections that clean them up.
type Service interface {
	Detect(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	SetStatus(ctx context.Context, input SetStatusInput) (*SetStatusResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.PayoutMetrics
}

// SetStatusInput carries a bulk status transition request.
type SetStatusInput struct {
	IDs     []uuid.UUID
	Status  enums.LineItemStatus
	AdminID string
}

// SetStatusResult reports which ids were updated. Failed is only populated on
// the error path; a partial failure leaves every item in its prior state.
type SetStatusResult struct {
	Updated []uuid.UUID
	Failed  []uuid.UUID
}

// NewService builds a duplicates service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, payoutMetrics *metrics.PayoutMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("duplicates repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  ob,
		metrics: payoutMetrics,
	}, nil
}

// Detect groups the order's active line items by product id. Each flagged item
// maps to every other active item sharing its product, so groups are fully
// connected regardless of row order; singletons are omitted.
func (s *service) Detect(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	items, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order line items")
	}

	byProduct := make(map[uuid.UUID][]uuid.UUID)
	for _, item := range items {
		if item.Status != enums.LineItemStatusActive {
			continue
		}
		byProduct[item.ProductID] = append(byProduct[item.ProductID], item.ID)
	}

	result := make(map[uuid.UUID][]uuid.UUID)
	groups := 0
	for _, ids := range byProduct {
		if len(ids) < 2 {
			continue
		}
		groups++
		for _, id := range ids {
			siblings := make([]uuid.UUID, 0, len(ids)-1)
			for _, other := range ids {
				if other != id {
					siblings = append(siblings, other)
				}
			}
			result[id] = siblings
		}
	}
	s.metrics.AddDuplicateGroups(groups)
	return result, nil
}

// SetStatus applies one status to every id atomically. Ids that cannot be
// updated fail the whole request; the caller gets the conflicting ids back and
// no item changes state.
func (s *service) SetStatus(ctx context.Context, input SetStatusInput) (*SetStatusResult, error) {
	if len(input.IDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid line item status %q", input.Status))
	}
	if input.AdminID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	seen := make(map[uuid.UUID]struct{}, len(input.IDs))
	for _, id := range input.IDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate id %s in request", id))
		}
		seen[id] = struct{}{}
	}

	result := &SetStatusResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		items, err := repo.FindByIDs(ctx, input.IDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line items")
		}

		found := make(map[uuid.UUID]models.LineItem, len(items))
		for _, item := range items {
			found[item.ID] = item
		}

		var failures error
		for _, id := range input.IDs {
			item, ok := found[id]
			if !ok {
				result.Failed = append(result.Failed, id)
				failures = multierr.Append(failures, fmt.Errorf("line item %s not found", id))
				continue
			}
			if item.Status == enums.LineItemStatusRemoved && input.Status == enums.LineItemStatusActive {
				result.Failed = append(result.Failed, id)
				failures = multierr.Append(failures, fmt.Errorf("line item %s is removed and cannot be reactivated", id))
			}
		}
		if failures != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, failures, "bulk status update rejected").
				WithDetails(map[string]any{"failed_ids": result.Failed})
		}

		if err := repo.UpdateStatus(ctx, input.IDs, input.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line item status")
		}

		byOrder := make(map[uuid.UUID][]uuid.UUID)
		for _, item := range items {
			byOrder[item.OrderID] = append(byOrder[item.OrderID], item.ID)
		}
		for orderID, ids := range byOrder {
			event := outbox.DomainEvent{
				EventType:     enums.EventLineItemsStatusSet,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Version:       1,
				Actor:         &outbox.ActorRef{AdminID: input.AdminID},
				Data: payloads.LineItemsStatusChangedEvent{
					OrderID: orderID,
					Status:  input.Status,
					ItemIDs: ids,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}

		result.Updated = input.IDs
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
