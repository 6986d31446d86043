package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpantry/pantry/src/utils/cache"
	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/model"
	"github.com/openpantry/pantry/src/utils/monitoring"
	"github.com/openpantry/pantry/src/utils/task"

	"github.com/rs/xid"
)

// Engine enforces the Item/Claim state machine against the remote
// store and keeps observers correct despite concurrent writers.
//
// The store offers no usable multi-row transactions, so every
// multi-step operation is safely re-runnable: the item status is
// re-derived from the claim set instead of being incremented, which
// avoids double-counting races between concurrent writers. The
// acceptable inconsistency window is bounded by cache TTL, the claim
// rows remain the source of truth for who can act next.
type Engine struct {
	*task.Task

	store   Store
	cache   *cache.Store
	monitor *monitoring.Monitor
}

func NewEngine(config *config.Config) (self *Engine) {
	self = new(Engine)

	self.Task = task.NewTask(config, "lifecycle").
		WithWorkerPool(config.Lifecycle.NumWorkers, config.Lifecycle.WorkerQueueSize)

	return
}

func (self *Engine) WithStore(store Store) *Engine {
	self.store = store
	return self
}

func (self *Engine) WithCache(cache *cache.Store) *Engine {
	self.cache = cache
	return self
}

func (self *Engine) WithMonitor(monitor *monitoring.Monitor) *Engine {
	self.monitor = monitor
	return self
}

// CreateItem inserts a new available item owned by the actor.
func (self *Engine) CreateItem(ctx context.Context, item *model.Item) (err error) {
	item.Id = xid.New().String()
	item.Status = model.ItemAvailable

	err = self.store.InsertItem(ctx, item)
	if err != nil {
		return fmt.Errorf("%w: inserting item: %v", model.ErrRemoteWriteFailed, err)
	}

	self.invalidateItems()
	return
}

// DeleteItem removes an item. Only the owner may delete, and only
// while the item is available or requested. Reserved and completed
// items keep their history.
func (self *Engine) DeleteItem(ctx context.Context, itemId, actorId string) (err error) {
	item, err := self.store.GetItem(ctx, itemId)
	if err != nil {
		return self.readFailed("item", err)
	}
	if item.OwnerId != actorId {
		return ErrNotOwner
	}
	if item.Status != model.ItemAvailable && item.Status != model.ItemRequested {
		return ErrNotDeletable
	}

	err = self.store.DeleteItem(ctx, itemId)
	if err != nil {
		return fmt.Errorf("%w: deleting item: %v", model.ErrRemoteWriteFailed, err)
	}

	self.invalidateItems()
	self.invalidateUser(item.OwnerId)
	return
}

// CreateClaim inserts a pending claim, then updates the item to
// requested. The item-status update is best effort: if it fails the
// claim still exists, item status is a derived hint, not a lock.
func (self *Engine) CreateClaim(ctx context.Context, itemId, claimerId, message string) (claim *model.Claim, err error) {
	item, err := self.store.GetItem(ctx, itemId)
	if err != nil {
		return nil, self.readFailed("item", err)
	}

	// Policy checks happen before any remote write
	if item.OwnerId == claimerId {
		return nil, ErrSelfClaim
	}
	if item.Status == model.ItemCompleted {
		return nil, ErrInvalidTransition
	}

	claim = &model.Claim{
		Id:        xid.New().String(),
		ItemId:    itemId,
		ClaimerId: claimerId,
		OwnerId:   item.OwnerId,
		Status:    model.ClaimPending,
		Message:   message,
	}

	err = self.store.InsertClaim(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting claim: %v", model.ErrRemoteWriteFailed, err)
	}
	if self.monitor != nil {
		self.monitor.Report.Lifecycle.ClaimsCreated.Inc()
	}

	// Secondary, best-effort status hint
	err = self.store.UpdateItemStatus(ctx, itemId, model.ItemRequested)
	if err != nil {
		self.secondaryFailed(itemId, err)
		err = nil
	}

	self.invalidateItems()
	self.invalidateUser(claim.ClaimerId)
	self.invalidateUser(claim.OwnerId)
	return
}

// UpdateClaim transitions a claim. Accepting reserves the item,
// rejecting re-derives the item status from the remaining claims.
// Only the item owner may accept or reject.
func (self *Engine) UpdateClaim(ctx context.Context, claimId, actorId string, status model.ClaimStatus, message string) (claim *model.Claim, err error) {
	claim, err = self.store.GetClaim(ctx, claimId)
	if err != nil {
		return nil, self.readFailed("claim", err)
	}
	if claim.OwnerId != actorId {
		return nil, ErrNotOwner
	}
	if !transitionAllowed(claim.Status, status) {
		return nil, ErrInvalidTransition
	}
	if status == model.ClaimAccepted {
		err = self.acceptAllowed(ctx, claim)
		if err != nil {
			return nil, err
		}
	}

	updates := map[string]any{"status": status}
	if message != "" {
		updates["message"] = message
	}
	err = self.store.UpdateClaim(ctx, claimId, updates)
	if err != nil {
		return nil, fmt.Errorf("%w: updating claim: %v", model.ErrRemoteWriteFailed, err)
	}
	claim.Status = status

	switch status {
	case model.ClaimAccepted:
		if self.monitor != nil {
			self.monitor.Report.Lifecycle.ClaimsAccepted.Inc()
		}
		// Secondary, best-effort status hint
		err = self.store.UpdateItemStatus(ctx, claim.ItemId, model.ItemReserved)
		if err != nil {
			self.secondaryFailed(claim.ItemId, err)
			err = nil
		}

	case model.ClaimRejected:
		if self.monitor != nil {
			self.monitor.Report.Lifecycle.ClaimsRejected.Inc()
		}
		self.reconcile(ctx, claim.ItemId)
	}

	self.invalidateItems()
	self.invalidateUser(claim.ClaimerId)
	self.invalidateUser(claim.OwnerId)
	return
}

// DeleteClaim removes a claim, claimer only. Same re-derivation
// policy as rejection: deleting the last pending claim reverts the
// item to available.
func (self *Engine) DeleteClaim(ctx context.Context, claimId, actorId string) (err error) {
	claim, err := self.store.GetClaim(ctx, claimId)
	if err != nil {
		return self.readFailed("claim", err)
	}
	if claim.ClaimerId != actorId {
		return ErrNotClaimer
	}
	if claim.Status == model.ClaimCompleted {
		return ErrInvalidTransition
	}

	err = self.store.DeleteClaim(ctx, claimId)
	if err != nil {
		return fmt.Errorf("%w: deleting claim: %v", model.ErrRemoteWriteFailed, err)
	}
	if self.monitor != nil {
		self.monitor.Report.Lifecycle.ClaimsDeleted.Inc()
	}

	self.reconcile(ctx, claim.ItemId)

	self.invalidateItems()
	self.invalidateUser(claim.ClaimerId)
	self.invalidateUser(claim.OwnerId)
	return
}

// MarkCompleted sets both claim and item to completed. Terminal, no
// further transitions are permitted out of completed.
func (self *Engine) MarkCompleted(ctx context.Context, itemId, claimId, actorId string) (err error) {
	claim, err := self.store.GetClaim(ctx, claimId)
	if err != nil {
		return self.readFailed("claim", err)
	}
	if claim.OwnerId != actorId {
		return ErrNotOwner
	}
	if claim.ItemId != itemId {
		return ErrInvalidTransition
	}
	if !transitionAllowed(claim.Status, model.ClaimCompleted) {
		return ErrInvalidTransition
	}

	err = self.store.UpdateClaim(ctx, claimId, map[string]any{"status": model.ClaimCompleted})
	if err != nil {
		return fmt.Errorf("%w: completing claim: %v", model.ErrRemoteWriteFailed, err)
	}
	if self.monitor != nil {
		self.monitor.Report.Lifecycle.ClaimsCompleted.Inc()
	}

	// Terminal propagation to the item. Contained on failure, the
	// next re-derivation reads the completed claim and converges.
	err = self.store.UpdateItemStatus(ctx, itemId, model.ItemCompleted)
	if err != nil {
		self.secondaryFailed(itemId, err)
		err = nil
	}

	self.invalidateItems()
	self.invalidateUser(claim.ClaimerId)
	self.invalidateUser(claim.OwnerId)
	return
}

// RequestRepair queues an asynchronous status re-derivation for the
// item, used by readers that notice the advisory status drifting
// from the claim set.
func (self *Engine) RequestRepair(itemId string) {
	if self.monitor != nil {
		self.monitor.Report.Lifecycle.ReadRepairsRequested.Inc()
	}
	self.SubmitToWorker(func() {
		self.reconcile(self.Ctx, itemId)
	})
}

// acceptAllowed checks the sibling claims before an accept. At most
// one claim per item may hold accepted or completed, and a completed
// item never leaves its terminal state, so a leftover pending claim
// on an already-handed-over item cannot be accepted.
func (self *Engine) acceptAllowed(ctx context.Context, claim *model.Claim) (err error) {
	siblings, err := self.store.ClaimsByItem(ctx, claim.ItemId)
	if err != nil {
		return self.readFailed("claims", err)
	}
	for _, sibling := range siblings {
		if sibling.Id == claim.Id {
			continue
		}
		if sibling.Status == model.ClaimAccepted || sibling.Status == model.ClaimCompleted {
			return ErrInvalidTransition
		}
	}
	return nil
}

// reconcile re-derives the item status from the authoritative claim
// set. Idempotent, safe to run redundantly by concurrent rejecters.
// Failures are logged and swallowed: the derived state self-corrects
// on the next read-triggered re-derivation.
func (self *Engine) reconcile(ctx context.Context, itemId string) {
	if self.monitor != nil {
		self.monitor.Report.Lifecycle.Reconciliations.Inc()
	}

	claims, err := self.store.ClaimsByItem(ctx, itemId)
	if err != nil {
		self.secondaryFailed(itemId, err)
		return
	}

	err = self.store.UpdateItemStatus(ctx, itemId, DeriveStatus(claims))
	if err != nil {
		self.secondaryFailed(itemId, err)
	}
}

func (self *Engine) readFailed(what string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: reading %s: %v", model.ErrRemoteReadFailed, what, err)
}

func (self *Engine) secondaryFailed(itemId string, err error) {
	if self.monitor != nil {
		self.monitor.Report.Lifecycle.ReconciliationErrors.Inc()
	}
	self.Log.WithError(err).WithField("item_id", itemId).
		Warn("Item status sync failed, will self-correct")
}

func (self *Engine) invalidateItems() {
	if self.cache == nil {
		return
	}
	self.cache.Invalidate(cache.Prefix(cache.DomainItems))
	self.cache.Invalidate(cache.Prefix(cache.DomainNearbyItems))
}

func (self *Engine) invalidateUser(userId string) {
	if self.cache == nil {
		return
	}
	self.cache.Invalidate(cache.UserPrefix(cache.DomainClaims, userId))
	self.cache.Invalidate(cache.UserPrefix(cache.DomainStats, userId))
}
