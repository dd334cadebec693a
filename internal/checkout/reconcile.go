package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/decorlyhq/decorly-backend/internal/cart"
	"github.com/decorlyhq/decorly-backend/internal/orders"
	"github.com/decorlyhq/decorly-backend/pkg/db/models"
	"github.com/decorlyhq/decorly-backend/pkg/enums"
	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
	"github.com/decorlyhq/decorly-backend/pkg/logger"
	"github.com/decorlyhq/decorly-backend/pkg/metrics"
	"github.com/decorlyhq/decorly-backend/pkg/outbox"
)

const reconcileJobName = "checkout_reconcile"

// Reconciler sweeps checkout groups whose order fan-out stopped partway.
// The charge already happened, so the sweep completes the ledger from the
// frozen cart lines instead of failing the checkout.
type Reconciler struct {
	carts   cart.Repository
	orders  orders.Repository
	gateway PaymentGateway
	tx      TxRunner
	emitter EventEmitter
	batch   int
	jobs    *metrics.JobMetrics
	log     *logger.Logger
}

// NewReconciler builds a reconciler.
func NewReconciler(
	carts cart.Repository,
	ordersRepo orders.Repository,
	gateway PaymentGateway,
	tx TxRunner,
	emitter EventEmitter,
	batchSize int,
	jobs *metrics.JobMetrics,
	log *logger.Logger,
) *Reconciler {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &Reconciler{
		carts:   carts,
		orders:  ordersRepo,
		gateway: gateway,
		tx:      tx,
		emitter: emitter,
		batch:   batchSize,
		jobs:    jobs,
		log:     log,
	}
}

// Run sweeps one batch. Groups are reconciled independently; one failure
// does not stop the rest of the batch.
func (r *Reconciler) Run(ctx context.Context) error {
	start := time.Now()

	groups, err := r.orders.ListCheckoutGroupsByStatus(ctx, enums.CheckoutGroupStatusPartiallyPersisted, r.batch)
	if err != nil {
		r.jobs.IncFailure(reconcileJobName)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list groups to reconcile")
	}

	var sweepErr error
	for i := range groups {
		if err := r.reconcileGroup(ctx, &groups[i]); err != nil {
			r.log.Error(r.log.WithField(ctx, "checkout_group_id", groups[i].ID), "group reconciliation failed", err)
			sweepErr = multierr.Append(sweepErr, err)
		}
	}

	r.jobs.ObserveDuration(reconcileJobName, time.Since(start))
	if sweepErr != nil {
		r.jobs.IncFailure(reconcileJobName)
		return sweepErr
	}
	r.jobs.IncSuccess(reconcileJobName)
	if len(groups) > 0 {
		r.log.Info(r.log.WithField(ctx, "group_count", len(groups)), "reconcile sweep completed")
	}
	return nil
}

func (r *Reconciler) reconcileGroup(ctx context.Context, group *models.CheckoutGroup) error {
	ctx = r.log.WithTransactionID(ctx, group.PaymentTransactionID)

	status, err := r.gateway.VerifyTransaction(ctx, group.PaymentTransactionID)
	if err != nil {
		return err
	}

	// The charge never settled: void the written rows instead of finishing
	// the fan-out.
	if status == enums.PaymentStatusFailed {
		if err := r.orders.CancelOrdersByGroup(ctx, group.ID); err != nil {
			return err
		}
		return r.orders.UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusReconciled)
	}

	record, err := r.carts.FindByIDAndBuyer(ctx, group.CartID, group.BuyerID)
	if err != nil {
		return err
	}

	// The cart was claimed by a different checkout. This group lost a race
	// after charging; its rows are voided and the charge is left for the
	// refund queue.
	if record.CheckoutGroupID == nil || *record.CheckoutGroupID != group.ID {
		r.log.Warn(ctx, "reconciled group does not own its cart, voiding orders")
		if err := r.orders.CancelOrdersByGroup(ctx, group.ID); err != nil {
			return err
		}
		return r.orders.UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusReconciled)
	}

	if len(record.Lines) == 0 {
		// Fan-out finished but the closing transaction never committed its
		// status flip. Nothing to rebuild.
		return r.orders.UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusReconciled)
	}

	groups, err := Partition(record.Lines, group.TaxRateBps)
	if err != nil {
		return err
	}

	existing, err := r.orders.FindCheckoutGroupByID(ctx, group.ID)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(existing.Orders))
	for _, o := range existing.Orders {
		key := GeneralBucketKey
		if o.ProjectID != nil {
			key = o.ProjectID.String()
		}
		have[key] = true
	}

	written := make([]uuid.UUID, 0, len(groups))
	for _, o := range existing.Orders {
		written = append(written, o.ID)
	}
	for _, g := range groups {
		if have[g.Key()] {
			continue
		}
		order := buildOrder(group, g)
		if err := r.orders.CreateOrder(ctx, order); err != nil {
			return err
		}
		written = append(written, order.ID)
	}

	lineIDs := make([]uuid.UUID, 0, len(record.Lines))
	for _, l := range record.Lines {
		lineIDs = append(lineIDs, l.ID)
	}

	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := r.carts.WithTx(tx).RemoveLines(ctx, record.ID, lineIDs); err != nil {
			return err
		}
		if err := r.orders.WithTx(tx).UpdateCheckoutGroupStatus(ctx, group.ID, enums.CheckoutGroupStatusReconciled); err != nil {
			return err
		}
		return r.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     outbox.EventOrdersCreated,
			AggregateType: outbox.AggregateCheckoutGroup,
			AggregateID:   group.ID,
			Data: outbox.OrdersCreatedEvent{
				CheckoutGroupID:      group.ID,
				PaymentTransactionID: group.PaymentTransactionID,
				OrderIDs:             written,
			},
		})
	})
}
