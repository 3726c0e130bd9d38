package settlement

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
	"github.com/luisarteaga/marketdesk-backend/internal/pending"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	"github.com/luisarteaga/marketdesk-backend/pkg/db/models"
	"github.com/luisarteaga/marketdesk-backend/pkg/enums"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
	"github.com/luisarteaga/marketdesk-backend/pkg/metrics"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox"
	"github.com/luisarteaga/marketdesk-backend/pkg/outbox/payloads"
	"github.com/luisarteaga/marketdesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service creates settlement batches and records manual settlements. Batch
// creation and item attachment commit atomically; eligibility is re-verified
// under row locks inside that transaction, so two racing requests split the
// eligible set instead of double-paying any item.
type Service interface {
	CreateBatch(ctx context.Context, input CreateBatchInput) (*models.SettlementBatch, error)
	MarkMonthPaid(ctx context.Context, input MarkMonthPaidInput) (*MarkMonthPaidResult, error)
	ListBatches(ctx context.Context, input ListBatchesInput) (*BatchPage, error)
	GetBatch(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error)
}

type service struct {
	repo         Repository
	pending      pending.Service
	tx           txRunner
	outbox       outboxPublisher
	metrics      *metrics.PayoutMetrics
	logg         *logger.Logger
	storeTimeout time.Duration
}

// CreateBatchInput starts a redemption for one vendor.
type CreateBatchInput struct {
	VendorName string
	AdminID    string
}

// MarkMonthPaidInput records an out-of-band settlement of a whole month.
type MarkMonthPaidInput struct {
	VendorName        string
	Year              int
	Month             int
	Reference         string
	CreateBatchRecord bool
	AdminID           string
}

// MarkMonthPaidResult reports what the manual settlement covered. Batch is
// populated only when the caller asked for a visible batch record.
type MarkMonthPaidResult struct {
	Batch       *models.SettlementBatch
	ItemsMarked int
	TotalAmount decimal.Decimal
}

// ListBatchesInput filters and paginates the batch listing.
type ListBatchesInput struct {
	VendorName string
	Pagination pagination.Params
}

// BatchPage is one page of settlement batches.
type BatchPage struct {
	Batches    []models.SettlementBatch
	NextCursor string
}

// NewService builds a settlement service with the required dependencies.
func NewService(repo Repository, pendingSvc pending.Service, tx txRunner, ob outboxPublisher, payoutMetrics *metrics.PayoutMetrics, logg *logger.Logger, cfg config.SettlementConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if pendingSvc == nil {
		return nil, fmt.Errorf("pending resolver required")
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
		pending:      pendingSvc,
		tx:           tx,
		outbox:       ob,
		metrics:      payoutMetrics,
		logg:         logg,
		storeTimeout: timeout,
	}, nil
}

func (s *service) CreateBatch(ctx context.Context, input CreateBatchInput) (*models.SettlementBatch, error) {
	if strings.TrimSpace(input.VendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	if input.AdminID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	resolution, err := s.pending.FindEligible(ctx, input.VendorName, nil)
	if err != nil {
		return nil, err
	}
	if err := classifyEmptyResolution(resolution); err != nil {
		return nil, err
	}

	batch := &models.SettlementBatch{
		VendorName:  input.VendorName,
		TotalAmount: decimal.Zero,
		Status:      enums.BatchStatusRequested,
		ProcessedBy: input.AdminID,
	}

	attached, total, err := s.commitBatch(ctx, batch, resolution.Items, nil, input.AdminID)
	if err != nil {
		return nil, err
	}

	batch.TotalAmount = total
	s.metrics.IncBatchCreated(input.VendorName)
	s.metrics.AddItemsSettled(len(attached))
	return batch, nil
}

func (s *service) MarkMonthPaid(ctx context.Context, input MarkMonthPaidInput) (*MarkMonthPaidResult, error) {
	if strings.TrimSpace(input.VendorName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	if input.Month < 1 || input.Month > 12 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if input.Year < 2000 || input.Year > 2200 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "year out of range")
	}
	if input.AdminID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	from := time.Date(input.Year, time.Month(input.Month), 1, 0, 0, 0, 0, time.UTC)
	window := &pending.DateRange{From: from, To: from.AddDate(0, 1, 0)}

	resolution, err := s.pending.FindEligible(ctx, input.VendorName, window)
	if err != nil {
		return nil, err
	}
	if err := classifyEmptyResolution(resolution); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	markedBy := input.AdminID
	batch := &models.SettlementBatch{
		VendorName:  input.VendorName,
		TotalAmount: decimal.Zero,
		Status:      enums.BatchStatusCompleted,
		ProcessedBy: input.AdminID,
	}
	if input.Reference != "" {
		ref := input.Reference
		batch.Reference = &ref
	}

	manual := &manualMark{markedBy: markedBy, markedAt: now, year: input.Year, month: input.Month}
	attached, total, err := s.commitBatch(ctx, batch, resolution.Items, manual, input.AdminID)
	if err != nil {
		return nil, err
	}

	batch.TotalAmount = total
	s.metrics.IncBatchCreated(input.VendorName)
	s.metrics.AddItemsSettled(len(attached))

	result := &MarkMonthPaidResult{
		ItemsMarked: len(attached),
		TotalAmount: total,
	}
	if input.CreateBatchRecord {
		result.Batch = batch
	}
	return result, nil
}

type manualMark struct {
	markedBy string
	markedAt time.Time
	year     int
	month    int
}

// commitBatch persists the batch row and its items in one transaction. The
// caller's eligibility snapshot was read outside this transaction, so the
// candidates are locked and re-checked against batch_items before anything is
// inserted; items claimed by a concurrent batch in the meantime are skipped.
// If every item conflicts the transaction rolls back and the caller sees
// ALREADY_PAID, so a batch can never exist with zero attached items.
func (s *service) commitBatch(ctx context.Context, batch *models.SettlementBatch, items []pending.EligibleItem, manual *manualMark, adminID string) ([]uuid.UUID, decimal.Decimal, error) {
	var attached []uuid.UUID
	total := decimal.Zero

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateBatch(ctx, batch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create settlement batch")
		}

		candidates := make([]uuid.UUID, 0, len(items))
		for _, eligible := range items {
			candidates = append(candidates, eligible.Item.ID)
		}
		claimed, err := repo.ClaimedLineItems(ctx, candidates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-verify eligible items")
		}

		for _, eligible := range items {
			if _, taken := claimed[eligible.Item.ID]; taken {
				continue
			}
			amount := earnings.RoundForSettlement(eligible.Amount)
			item := &models.BatchItem{
				BatchID:    batch.ID,
				LineItemID: eligible.Item.ID,
				Amount:     amount,
			}
			if manual != nil {
				item.ManuallyMarkedPaid = true
				item.MarkedBy = &manual.markedBy
				item.MarkedAt = &manual.markedAt
			}
			inserted, err := repo.InsertItem(ctx, item)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach batch item")
			}
			if !inserted {
				continue
			}
			attached = append(attached, eligible.Item.ID)
			total = total.Add(amount)
		}

		if len(attached) == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "all candidate items already paid")
		}

		if err := repo.UpdateTotal(ctx, batch.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record batch total")
		}

		return s.outbox.Emit(ctx, tx, s.batchEvent(batch, attached, total, adminID, manual))
	})
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeAlreadyPaid) {
			s.reportRollback(ctx, batch, len(items), adminID, err)
		}
		attached = nil
		return nil, decimal.Zero, err
	}
	return attached, total, nil
}

func (s *service) batchEvent(batch *models.SettlementBatch, attached []uuid.UUID, total decimal.Decimal, adminID string, manual *manualMark) outbox.DomainEvent {
	actor := &outbox.ActorRef{AdminID: adminID, Vendor: batch.VendorName}
	if manual != nil {
		return outbox.DomainEvent{
			EventType:     enums.EventMonthMarkedPaid,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Actor:         actor,
			Data: payloads.MonthMarkedPaidEvent{
				BatchID:    batch.ID,
				VendorName: batch.VendorName,
				Year:       manual.year,
				Month:      manual.month,
				ItemCount:  len(attached),
				Total:      total.StringFixed(2),
			},
		}
	}
	reference := ""
	if batch.Reference != nil {
		reference = *batch.Reference
	}
	return outbox.DomainEvent{
		EventType:     enums.EventBatchCreated,
		AggregateType: enums.AggregateSettlementBatch,
		AggregateID:   batch.ID,
		Version:       1,
		Actor:         actor,
		Data: payloads.BatchCreatedEvent{
			BatchID:    batch.ID,
			VendorName: batch.VendorName,
			Total:      total.StringFixed(2),
			ItemCount:  len(attached),
			LineItems:  attached,
			Reference:  reference,
		},
	}
}

// reportRollback records that a batch creation was undone. The audit row is
// written best-effort in its own transaction because the failing one is gone.
func (s *service) reportRollback(ctx context.Context, batch *models.SettlementBatch, itemCount int, adminID string, cause error) {
	s.metrics.IncBatchRolledBack()
	if batch.ID == uuid.Nil {
		return
	}
	// the failing transaction may have burned the deadline
	ctx = context.WithoutCancel(ctx)
	event := outbox.DomainEvent{
		EventType:     enums.EventBatchRolledBack,
		AggregateType: enums.AggregateSettlementBatch,
		AggregateID:   batch.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{AdminID: adminID, Vendor: batch.VendorName},
		Data: payloads.BatchRolledBackEvent{
			BatchID:    batch.ID,
			VendorName: batch.VendorName,
			Reason:     cause.Error(),
			ItemCount:  itemCount,
		},
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, event)
	}); err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording batch rollback audit event", err)
	}
}

func (s *service) ListBatches(ctx context.Context, input ListBatchesInput) (*BatchPage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	batches, err := s.repo.List(ctx, input.VendorName, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlement batches")
	}

	page := &BatchPage{}
	if len(batches) > limit {
		last := batches[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		batches = batches[:limit]
	}
	page.Batches = batches
	return page, nil
}

func (s *service) GetBatch(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	batch, err := s.repo.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settlement batch")
	}
	return batch, nil
}

// classifyEmptyResolution maps an empty payable set to its client-recoverable
// outcome: nothing matched the invariant, everything needs pricing, or
// everything is already settled.
func classifyEmptyResolution(resolution *pending.Resolution) error {
	if len(resolution.Items) > 0 {
		return nil
	}
	if resolution.CandidateCount == 0 {
		return pkgerrors.New(pkgerrors.CodeNoEligibleItems, "no eligible items found")
	}
	if len(resolution.NeedsPricing) > 0 {
		ids := make([]uuid.UUID, 0, len(resolution.NeedsPricing))
		for _, item := range resolution.NeedsPricing {
			ids = append(ids, item.ID)
		}
		return pkgerrors.New(pkgerrors.CodeNoEligibleItems, "eligible items are missing payout rules").
			WithDetails(map[string]any{"needs_pricing": ids})
	}
	return pkgerrors.New(pkgerrors.CodeAlreadyPaid, "all candidate items already paid")
}
