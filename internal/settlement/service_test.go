package settlement

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
)

type fakeRepo struct {
	rows []*models.ProjectPayment
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, payment *models.ProjectPayment) error {
	for _, row := range f.rows {
		if row.ExternalRef == payment.ExternalRef {
			return errors.New(`duplicate key value violates unique constraint "ux_project_payments_external_ref"`)
		}
		if payment.Status == enums.PaymentStatusPaid &&
			row.Status == enums.PaymentStatusPaid &&
			row.ProjectID == payment.ProjectID &&
			row.PaymentType == payment.PaymentType {
			return errors.New(`duplicate key value violates unique constraint "ux_project_payments_paid_milestone"`)
		}
	}
	f.rows = append(f.rows, payment)
	return nil
}

func (f *fakeRepo) FindByExternalRef(ctx context.Context, externalRef string) (*models.ProjectPayment, error) {
	for _, row := range f.rows {
		if row.ExternalRef == externalRef {
			return row, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
}

func (f *fakeRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectPayment, error) {
	var out []models.ProjectPayment
	for _, row := range f.rows {
		if row.ProjectID == projectID {
			out = append(out, *row)
		}
	}
	return out, nil
}

type fakeEstimates struct {
	cents int
	ok    bool
}

func (f fakeEstimates) FeeEstimate(ctx context.Context, projectID uuid.UUID) (int, bool, error) {
	return f.cents, f.ok, nil
}

func newTestService(repo Repository, estimates FeeEstimateProvider) *Service {
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewService(repo, estimates, nil, metrics.NewCommerceMetrics(nil), log)
}

func paidEvent(projectID uuid.UUID, kind enums.PaymentType, amount int, ref string) PaymentEvent {
	return PaymentEvent{
		ExternalRef: ref,
		ProjectID:   projectID,
		PaymentType: kind,
		AmountCents: amount,
		Status:      enums.PaymentStatusPaid,
	}
}

func TestAdvanceThenBalanceSettlesProject(t *testing.T) {
	projectID := uuid.New()
	svc := newTestService(&fakeRepo{}, nil)

	result, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_1"))
	if err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if result.Status.State != enums.SettlementStateAdvancePaid {
		t.Fatalf("expected advance_paid, got %s", result.Status.State)
	}
	if result.Status.RendersUnlocked || result.Status.FinalFilesUnlocked {
		t.Error("nothing unlocks on the advance alone")
	}

	result, err = svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeBalance, 50000, "sq_2"))
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if result.Status.State != enums.SettlementStateFullyPaid {
		t.Fatalf("expected fully_paid, got %s", result.Status.State)
	}
	if !result.Status.RendersUnlocked || !result.Status.FinalFilesUnlocked {
		t.Error("both deliverables unlock once fully paid")
	}
}

func TestFullPaymentSettlesDirectly(t *testing.T) {
	projectID := uuid.New()
	svc := newTestService(&fakeRepo{}, nil)

	result, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeFull, 100000, "sq_full"))
	if err != nil {
		t.Fatalf("full payment failed: %v", err)
	}
	if result.Status.State != enums.SettlementStateFullyPaid {
		t.Fatalf("expected fully_paid, got %s", result.Status.State)
	}
	if !result.Status.AdvancePaid || !result.Status.BalancePaid {
		t.Error("a full payment covers both milestones")
	}
	if !result.Status.RendersUnlocked || !result.Status.FinalFilesUnlocked {
		t.Error("deliverables should unlock")
	}
}

func TestDuplicateExternalRefIsNoOp(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil)

	first, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_dup"))
	if err != nil {
		t.Fatalf("first event failed: %v", err)
	}

	second, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_dup"))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Duplicate {
		t.Error("replay was not flagged as duplicate")
	}
	if second.Status.State != first.Status.State {
		t.Error("replay changed the settlement state")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 payment row, got %d", len(repo.rows))
	}
}

func TestSecondPaidMilestoneIsAbsorbed(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil)

	if _, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_a")); err != nil {
		t.Fatalf("first advance failed: %v", err)
	}

	// A different external ref for the same milestone hits the paid
	// milestone index and collapses into the existing settlement.
	result, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_b"))
	if err != nil {
		t.Fatalf("second advance failed: %v", err)
	}
	if !result.Duplicate {
		t.Error("second paid advance should be absorbed")
	}
	if result.Status.State != enums.SettlementStateAdvancePaid {
		t.Errorf("state is %s", result.Status.State)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(repo.rows))
	}
}

func TestFailedEventsNeverAdvanceState(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil)

	result, err := svc.ApplyEvent(context.Background(), PaymentEvent{
		ExternalRef: "sq_failed",
		ProjectID:   projectID,
		PaymentType: enums.PaymentTypeAdvance,
		AmountCents: 50000,
		Status:      enums.PaymentStatusFailed,
	})
	if err != nil {
		t.Fatalf("failed event errored: %v", err)
	}
	if result.Status.State != enums.SettlementStateNone {
		t.Fatalf("failed payment advanced state to %s", result.Status.State)
	}
	if len(repo.rows) != 1 {
		t.Error("failed events are still recorded for audit")
	}

	// A later successful confirmation for the same milestone goes through.
	result, err = svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_retry"))
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if result.Status.State != enums.SettlementStateAdvancePaid {
		t.Errorf("expected advance_paid, got %s", result.Status.State)
	}
}

func TestBalanceWithoutAdvanceIsFlagged(t *testing.T) {
	projectID := uuid.New()
	svc := newTestService(&fakeRepo{}, nil)

	result, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeBalance, 50000, "sq_bal"))
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if !result.Status.NeedsReview {
		t.Error("balance without advance should be flagged for review")
	}
	if result.Status.State == enums.SettlementStateFullyPaid {
		t.Error("unreconciled balance must not settle the project")
	}
	if result.Status.RendersUnlocked || result.Status.FinalFilesUnlocked {
		t.Error("nothing unlocks while flagged for review")
	}
}

func TestBalanceCoveringEstimateSettles(t *testing.T) {
	projectID := uuid.New()
	svc := newTestService(&fakeRepo{}, fakeEstimates{cents: 100000, ok: true})

	result, err := svc.ApplyEvent(context.Background(), paidEvent(projectID, enums.PaymentTypeBalance, 100000, "sq_bal_full"))
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if result.Status.State != enums.SettlementStateFullyPaid {
		t.Fatalf("expected fully_paid, got %s", result.Status.State)
	}
	if result.Status.NeedsReview {
		t.Error("a balance covering the estimate needs no review")
	}
	if !result.Status.RendersUnlocked || !result.Status.FinalFilesUnlocked {
		t.Error("deliverables should unlock")
	}
}

func TestStateOnlyMovesForward(t *testing.T) {
	projectID := uuid.New()
	svc := newTestService(&fakeRepo{}, nil)

	events := []PaymentEvent{
		paidEvent(projectID, enums.PaymentTypeAdvance, 50000, "sq_m1"),
		{ExternalRef: "sq_m2", ProjectID: projectID, PaymentType: enums.PaymentTypeBalance, AmountCents: 50000, Status: enums.PaymentStatusFailed},
		paidEvent(projectID, enums.PaymentTypeBalance, 50000, "sq_m3"),
		{ExternalRef: "sq_m4", ProjectID: projectID, PaymentType: enums.PaymentTypeAdvance, AmountCents: 1, Status: enums.PaymentStatusFailed},
	}

	prev := enums.SettlementStateNone.Rank()
	for _, event := range events {
		result, err := svc.ApplyEvent(context.Background(), event)
		if err != nil {
			t.Fatalf("event %s failed: %v", event.ExternalRef, err)
		}
		rank := result.Status.State.Rank()
		if rank < prev {
			t.Fatalf("state regressed from rank %d to %d at %s", prev, rank, event.ExternalRef)
		}
		prev = rank
	}
	if prev != enums.SettlementStateFullyPaid.Rank() {
		t.Errorf("expected fully_paid at the end, rank %d", prev)
	}
}

func TestProjectWithNoPaymentsIsLocked(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)

	status, err := svc.GetStatus(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.State != enums.SettlementStateNone {
		t.Errorf("expected none, got %s", status.State)
	}
	if status.AdvancePaid || status.BalancePaid {
		t.Error("no milestones should be paid")
	}
	if status.RendersUnlocked || status.FinalFilesUnlocked {
		t.Error("deliverables must stay locked")
	}
}

func TestApplyEventValidation(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)
	projectID := uuid.New()

	cases := map[string]PaymentEvent{
		"missing ref":     {ProjectID: projectID, PaymentType: enums.PaymentTypeAdvance, Status: enums.PaymentStatusPaid},
		"missing project": {ExternalRef: "r", PaymentType: enums.PaymentTypeAdvance, Status: enums.PaymentStatusPaid},
		"bad type":        {ExternalRef: "r", ProjectID: projectID, PaymentType: "tip", Status: enums.PaymentStatusPaid},
		"bad status":      {ExternalRef: "r", ProjectID: projectID, PaymentType: enums.PaymentTypeAdvance, Status: "maybe"},
		"negative amount": {ExternalRef: "r", ProjectID: projectID, PaymentType: enums.PaymentTypeAdvance, Status: enums.PaymentStatusPaid, AmountCents: -1},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ApplyEvent(context.Background(), event); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
