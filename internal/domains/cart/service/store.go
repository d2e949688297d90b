package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domains/cart/model"
	"storefront/internal/domains/cart/repository"
	"storefront/internal/infrastructure/api"
	"storefront/internal/shared"
	"storefront/internal/shared/notify"
	"storefront/pkg/logger"
)

// Store is the client-side cart-of-record. Every mutation goes to the
// server and is followed by a refetch; prices and totals are whatever the
// server last reported.
type Store struct {
	repo      repository.RepositoryInterface
	snapshots repository.SnapshotStore // optional
	notifier  notify.Notifier
	now       func() time.Time

	// mutations holds from reading local state until the resync lands, so a
	// delta computed by one call always sees the result of the previous one.
	mutations sync.Mutex

	mu      sync.RWMutex
	cart    model.Cart
	loading int
	err     error
	// seq orders fetches so an older response never replaces a newer one
	seq     uint64
	applied uint64
	// stale is set when a resync after a successful mutation failed
	stale bool
}

func NewStore(repo repository.RepositoryInterface, snapshots repository.SnapshotStore, notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Store{
		repo:      repo,
		snapshots: snapshots,
		notifier:  notifier,
		now:       time.Now,
		cart:      model.Cart{Total: decimal.Zero},
	}
}

// ========================================
// READ SIDE
// ========================================

// Snapshot returns a copy of the current cart
func (s *Store) Snapshot() model.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *Store) Items() []model.CartItem {
	return s.Snapshot().Items
}

func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Total
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Err returns the error of the last attempt, nil after a success
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ItemCount is the number of units across all lines
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, it := range s.cart.Items {
		n += it.Quantity
	}
	return n
}

func (s *Store) Find(productID shared.ID) (model.CartItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.FindByProduct(productID)
}

// ========================================
// FETCH
// ========================================

// FetchCart replaces the local cart with the server's. On failure the
// previous items stay visible and the error is recorded and notified.
func (s *Store) FetchCart(ctx context.Context) error {
	s.begin()
	defer s.end()
	return s.fetch(ctx)
}

// Restore loads the persisted snapshot. It never overrides a cart that was
// already fetched.
func (s *Store) Restore(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		logger.Error("load cart snapshot failed", err)
		return err
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied > 0 {
		return nil
	}
	s.cart = sanitize(snap.Cart)
	logger.DebugFields("cart restored from snapshot", map[string]interface{}{
		"items":      len(s.cart.Items),
		"fetched_at": snap.FetchedAt,
	})
	return nil
}

func (s *Store) fetch(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	cart, err := s.repo.GetCart(ctx)
	if err != nil {
		logger.Error("fetch cart failed", err)
		s.mu.RLock()
		superseded := seq < s.applied
		s.mu.RUnlock()
		if superseded {
			return nil
		}
		s.fail(model.ErrCodeFetchFailed, model.MsgFetchFailed, err)
		return s.Err()
	}

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return nil
	}
	s.applied = seq
	s.cart = sanitize(*cart)
	s.stale = false
	snap := model.Snapshot{Cart: s.cart.Clone(), FetchedAt: s.now()}
	s.mu.Unlock()

	s.persist(ctx, snap)
	return nil
}

// ========================================
// MUTATIONS
// ========================================

// AddItem adds a product. A product already in the cart is merged by the
// server; the shopper is only warned.
func (s *Store) AddItem(ctx context.Context, productID shared.ID, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mutations.Lock()
	defer s.mutations.Unlock()
	s.begin()
	defer s.end()

	if _, ok := s.Find(productID); ok {
		s.notifier.Notify(notify.LevelWarning, model.MsgAlreadyInCart)
	}

	req := model.AddToCartRequest{ProductID: productID, Quantity: quantity}
	if err := s.repo.AddItem(ctx, req); err != nil {
		logger.Error("add cart item failed", err)
		s.fail(model.ErrCodeAddFailed, model.MsgAddFailed, err)
		return s.Err()
	}

	s.notifier.Notify(notify.LevelSuccess, model.MsgItemAdded)
	s.resync(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, itemID shared.ID, quantity int) error {
	s.mutations.Lock()
	defer s.mutations.Unlock()
	s.begin()
	defer s.end()
	return s.update(ctx, itemID, quantity)
}

func (s *Store) IncreaseQuantity(ctx context.Context, itemID shared.ID) error {
	return s.adjust(ctx, itemID, 1)
}

func (s *Store) DecreaseQuantity(ctx context.Context, itemID shared.ID) error {
	return s.adjust(ctx, itemID, -1)
}

// adjust computes the new quantity under the mutation lock, so its base
// already reflects every earlier mutation.
func (s *Store) adjust(ctx context.Context, itemID shared.ID, delta int) error {
	s.mutations.Lock()
	defer s.mutations.Unlock()
	s.begin()
	defer s.end()

	s.mu.RLock()
	stale := s.stale
	s.mu.RUnlock()
	if stale {
		if err := s.fetch(ctx); err != nil {
			return err
		}
	}

	s.mu.RLock()
	item, ok := s.cart.FindByID(itemID)
	s.mu.RUnlock()
	if !ok {
		return errItemNotFound(itemID)
	}
	return s.update(ctx, itemID, item.Quantity+delta)
}

func (s *Store) update(ctx context.Context, itemID shared.ID, quantity int) error {
	if quantity <= 0 {
		return s.remove(ctx, itemID)
	}

	if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		logger.Error("update cart item failed", err)
		s.fail(model.ErrCodeUpdateFailed, model.MsgUpdateFailed, err)
		return s.Err()
	}
	logger.DebugFields("cart item quantity updated", map[string]interface{}{
		"item_id":  itemID.String(),
		"quantity": quantity,
	})
	s.resync(ctx)
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, itemID shared.ID) error {
	s.mutations.Lock()
	defer s.mutations.Unlock()
	s.begin()
	defer s.end()
	return s.remove(ctx, itemID)
}

func (s *Store) remove(ctx context.Context, itemID shared.ID) error {
	if err := s.repo.RemoveItem(ctx, itemID); err != nil {
		logger.Error("remove cart item failed", err)
		s.fail(model.ErrCodeRemoveFailed, model.MsgRemoveFailed, err)
		return s.Err()
	}
	s.resync(ctx)
	return nil
}

// ClearCart empties the cart. The outcome is unambiguous so no refetch.
func (s *Store) ClearCart(ctx context.Context) error {
	s.mutations.Lock()
	defer s.mutations.Unlock()
	s.begin()
	defer s.end()

	if err := s.repo.ClearCart(ctx); err != nil {
		logger.Error("clear cart failed", err)
		s.fail(model.ErrCodeClearFailed, model.MsgClearFailed, err)
		return s.Err()
	}

	s.mu.Lock()
	s.seq++
	s.applied = s.seq
	s.cart.Items = nil
	s.cart.Total = decimal.Zero
	s.cart.ItemsCount = 0
	s.stale = false
	snap := model.Snapshot{Cart: s.cart.Clone(), FetchedAt: s.now()}
	s.mu.Unlock()

	s.notifier.Notify(notify.LevelSuccess, model.MsgCartCleared)
	s.persist(ctx, snap)
	return nil
}

// ========================================
// HELPERS
// ========================================

// resync refetches after a successful mutation. A failure is recorded on
// the store and marks the local cart stale; the mutation itself stands.
func (s *Store) resync(ctx context.Context) {
	if err := s.fetch(ctx); err != nil {
		s.mu.Lock()
		s.stale = true
		s.mu.Unlock()
	}
}

// begin marks the store loading and clears the previous error
func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.err = nil
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

func (s *Store) fail(code, fallback string, err error) {
	message := api.MessageOr(err, fallback)
	s.mu.Lock()
	s.err = model.NewCartError(code, message, err)
	s.mu.Unlock()
	s.notifier.Notify(notify.LevelError, message)
}

func (s *Store) persist(ctx context.Context, snap model.Snapshot) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		logger.Error("persist cart snapshot failed", err)
	}
}

// sanitize drops lines the server reports with quantity below one
func sanitize(c model.Cart) model.Cart {
	items := make([]model.CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.Quantity < 1 {
			continue
		}
		items = append(items, it)
	}
	c.Items = items
	if c.Total.IsZero() {
		c.Total = decimal.Zero
	}
	return c
}

func errItemNotFound(itemID shared.ID) error {
	return fmt.Errorf("%w: %s", model.ErrCartItemNotFound, itemID)
}
