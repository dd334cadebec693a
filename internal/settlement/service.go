package settlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/decorlyhq/decorly-backend/pkg/db"
	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
)

// PaymentEvent is one inbound confirmation from the payment provider.
// ExternalRef is the provider-side id and deduplicates replays.
type PaymentEvent struct {
	ExternalRef string
	ProjectID   uuid.UUID
	PaymentType enums.PaymentType
	AmountCents int
	Status      enums.PaymentStatus
}

// ApplyResult reports what one event did to the project's settlement.
type ApplyResult struct {
	Duplicate bool
	Status    *Status
}

// Status is the derived settlement view for one project. Unlock flags are
// computed from the paid milestones on every read and are never stored.
type Status struct {
	ProjectID          uuid.UUID              `json:"project_id"`
	AdvancePaid        bool                   `json:"advance_paid"`
	BalancePaid        bool                   `json:"balance_paid"`
	State              enums.SettlementState  `json:"state"`
	RendersUnlocked    bool                   `json:"renders_unlocked"`
	FinalFilesUnlocked bool                   `json:"final_files_unlocked"`
	NeedsReview        bool                   `json:"needs_review"`
	Payments           []models.ProjectPayment `json:"payments,omitempty"`
}

// FeeEstimateProvider resolves a project's design fee estimate in cents.
// ok is false when no estimate exists for the project.
type FeeEstimateProvider interface {
	FeeEstimate(ctx context.Context, projectID uuid.UUID) (cents int, ok bool, err error)
}

// OrderSettler flips pending orders tied to a gateway transaction to paid.
type OrderSettler interface {
	MarkPaidByTransaction(ctx context.Context, transactionID string) (int64, error)
}

// Service applies payment confirmations to project settlement and derives
// the deliverable unlock state from them.
type Service struct {
	repo      Repository
	estimates FeeEstimateProvider
	settler   OrderSettler
	commerce  *metrics.CommerceMetrics
	log       *logger.Logger
}

// NewService builds a settlement service. estimates may be nil when no fee
// estimate source is wired; balance-without-advance is then always flagged.
// settler may be nil when order settlement is handled elsewhere.
func NewService(repo Repository, estimates FeeEstimateProvider, settler OrderSettler, commerce *metrics.CommerceMetrics, log *logger.Logger) *Service {
	return &Service{repo: repo, estimates: estimates, settler: settler, commerce: commerce, log: log}
}

// ApplyEvent records one provider confirmation. Replays of the same external
// reference are no-ops that return the current settlement unchanged, and a
// second paid confirmation for an already paid milestone is absorbed the same
// way. Failed confirmations are recorded for audit but never advance the
// settlement, so the derived state only ever moves forward.
func (s *Service) ApplyEvent(ctx context.Context, event PaymentEvent) (*ApplyResult, error) {
	if event.ExternalRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}
	if event.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	if !event.PaymentType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment type")
	}
	if !event.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}
	if event.AmountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}

	ctx = s.log.WithProjectID(ctx, event.ProjectID.String())

	if _, err := s.repo.FindByExternalRef(ctx, event.ExternalRef); err == nil {
		s.commerce.IncPaymentEvent("duplicate")
		s.log.Info(ctx, "payment event replayed, ignoring")
		return s.duplicateResult(ctx, event.ProjectID)
	} else if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	row := &models.ProjectPayment{
		ID:          uuid.New(),
		ProjectID:   event.ProjectID,
		PaymentType: event.PaymentType,
		Status:      event.Status,
		AmountCents: event.AmountCents,
		ExternalRef: event.ExternalRef,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		// Either the external ref raced a concurrent replay or the paid
		// milestone row already exists. Both mean the settlement already
		// reflects this payment.
		if db.IsUniqueViolation(err) {
			s.commerce.IncPaymentEvent("duplicate")
			return s.duplicateResult(ctx, event.ProjectID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment event")
	}

	if event.Status == enums.PaymentStatusPaid {
		s.commerce.IncPaymentEvent("applied")
		// When the external reference is also a checkout transaction, the
		// confirmation settles those orders too. No match is a no-op.
		if s.settler != nil {
			if _, err := s.settler.MarkPaidByTransaction(ctx, event.ExternalRef); err != nil {
				s.log.Warn(s.log.WithField(ctx, "external_ref", event.ExternalRef), "order settlement for payment event failed")
			}
		}
	} else {
		s.commerce.IncPaymentEvent("ignored_" + string(event.Status))
	}

	status, err := s.GetStatus(ctx, event.ProjectID)
	if err != nil {
		return nil, err
	}
	s.log.Info(s.log.WithField(ctx, "settlement_state", status.State.String()), "payment event applied")
	return &ApplyResult{Status: status}, nil
}

func (s *Service) duplicateResult(ctx context.Context, projectID uuid.UUID) (*ApplyResult, error) {
	status, err := s.GetStatus(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{Duplicate: true, Status: status}, nil
}

// GetStatus derives the settlement view for a project from its recorded
// payments.
func (s *Service) GetStatus(ctx context.Context, projectID uuid.UUID) (*Status, error) {
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}

	payments, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	estimate, haveEstimate := 0, false
	if s.estimates != nil {
		estimate, haveEstimate, err = s.estimates.FeeEstimate(ctx, projectID)
		if err != nil {
			return nil, err
		}
	}

	status := deriveStatus(projectID, payments, estimate, haveEstimate)
	status.Payments = payments
	return status, nil
}

// deriveStatus folds paid milestones into the settlement state. A full
// payment or the advance and balance pair settles the project. A balance
// with no advance only settles when the paid total covers the fee estimate;
// otherwise it is flagged for manual review and nothing unlocks.
func deriveStatus(projectID uuid.UUID, payments []models.ProjectPayment, estimateCents int, haveEstimate bool) *Status {
	var advancePaid, balancePaid, fullPaid bool
	paidTotal := 0
	for _, p := range payments {
		if p.Status != enums.PaymentStatusPaid {
			continue
		}
		paidTotal += p.AmountCents
		switch p.PaymentType {
		case enums.PaymentTypeAdvance:
			advancePaid = true
		case enums.PaymentTypeBalance:
			balancePaid = true
		case enums.PaymentTypeFull:
			fullPaid = true
		}
	}

	state := enums.SettlementStateNone
	needsReview := false
	switch {
	case fullPaid, advancePaid && balancePaid:
		state = enums.SettlementStateFullyPaid
	case balancePaid && !advancePaid:
		if haveEstimate && paidTotal >= estimateCents {
			state = enums.SettlementStateFullyPaid
		} else {
			needsReview = true
		}
	case advancePaid:
		state = enums.SettlementStateAdvancePaid
	}

	settled := state == enums.SettlementStateFullyPaid
	return &Status{
		ProjectID:          projectID,
		AdvancePaid:        advancePaid || fullPaid,
		BalancePaid:        balancePaid || fullPaid,
		State:              state,
		RendersUnlocked:    settled,
		FinalFilesUnlocked: settled,
		NeedsReview:        needsReview,
	}
}
