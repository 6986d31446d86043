package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openpantry/pantry/src/utils/cache"
	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

type EngineTestSuite struct {
	suite.Suite

	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
	store  *fakeStore
	cache  *cache.Store
	engine *Engine
}

func (s *EngineTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()
}

func (s *EngineTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *EngineTestSuite) SetupTest() {
	s.store = newFakeStore()
	s.cache = cache.NewStore(100)
	s.engine = NewEngine(s.config).
		WithStore(s.store).
		WithCache(s.cache)
}

func (s *EngineTestSuite) addItem(owner string) *model.Item {
	item := &model.Item{
		Id:       "item-" + owner,
		OwnerId:  owner,
		Status:   model.ItemAvailable,
		ItemType: model.ItemTypeFood,
		Title:    "bread",
	}
	s.store.items[item.Id] = item
	return item
}

// Checks the core invariant: available iff no pending/accepted claim
func (s *EngineTestSuite) assertInvariant(itemId string) {
	item := s.store.items[itemId]
	claims, _ := s.store.ClaimsByItem(s.ctx, itemId)

	var active int
	for _, claim := range claims {
		if claim.Status == model.ClaimPending || claim.Status == model.ClaimAccepted {
			active++
		}
	}

	if item.Status == model.ItemAvailable {
		assert.Zero(s.T(), active, "available item must have no active claims")
	} else {
		assert.NotZero(s.T(), active+boolToInt(item.Status == model.ItemCompleted), "non-available item must have active or completed claims")
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *EngineTestSuite) TestCreateClaimMarksItemRequested() {
	item := s.addItem("owner")

	claim, err := s.engine.CreateClaim(s.ctx, item.Id, "claimer", "hi")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ClaimPending, claim.Status)
	assert.Equal(s.T(), "owner", claim.OwnerId)
	assert.Equal(s.T(), model.ItemRequested, s.store.items[item.Id].Status)
	s.assertInvariant(item.Id)
}

func (s *EngineTestSuite) TestSelfClaimRejected() {
	item := s.addItem("owner")

	_, err := s.engine.CreateClaim(s.ctx, item.Id, "owner", "")
	assert.ErrorIs(s.T(), err, ErrSelfClaim)
	assert.Empty(s.T(), s.store.claims)
}

func (s *EngineTestSuite) TestCompletedItemNotClaimable() {
	item := s.addItem("owner")
	item.Status = model.ItemCompleted

	_, err := s.engine.CreateClaim(s.ctx, item.Id, "claimer", "")
	assert.ErrorIs(s.T(), err, ErrInvalidTransition)
}

func (s *EngineTestSuite) TestRejectingNonLastClaimKeepsItemRequested() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	_, err := s.engine.CreateClaim(s.ctx, item.Id, "bob", "")
	require.NoError(s.T(), err)

	_, err = s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimRejected, "")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), model.ItemRequested, s.store.items[item.Id].Status)
	s.assertInvariant(item.Id)
}

func (s *EngineTestSuite) TestRejectingLastClaimRevertsItemToAvailable() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")

	_, err := s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimRejected, "")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), model.ItemAvailable, s.store.items[item.Id].Status)
	s.assertInvariant(item.Id)
}

func (s *EngineTestSuite) TestDeletingLastClaimRevertsItemToAvailable() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")

	err := s.engine.DeleteClaim(s.ctx, a.Id, "alice")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), model.ItemAvailable, s.store.items[item.Id].Status)
	s.assertInvariant(item.Id)
}

func (s *EngineTestSuite) TestOnlyClaimerMayDelete() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")

	err := s.engine.DeleteClaim(s.ctx, a.Id, "owner")
	assert.ErrorIs(s.T(), err, ErrNotClaimer)
}

func (s *EngineTestSuite) TestOnlyOwnerMayAccept() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")

	_, err := s.engine.UpdateClaim(s.ctx, a.Id, "alice", model.ClaimAccepted, "")
	assert.ErrorIs(s.T(), err, ErrNotOwner)
}

// Full contention walk: two pending claims, one rejected, the other
// accepted and completed. The rejected one stays rejected forever.
func (s *EngineTestSuite) TestTwoClaimContentionScenario() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	b, _ := s.engine.CreateClaim(s.ctx, item.Id, "bob", "")

	_, err := s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimRejected, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ItemRequested, s.store.items[item.Id].Status)

	_, err = s.engine.UpdateClaim(s.ctx, b.Id, "owner", model.ClaimAccepted, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ItemReserved, s.store.items[item.Id].Status)
	assert.Equal(s.T(), model.ClaimAccepted, s.store.claims[b.Id].Status)

	err = s.engine.MarkCompleted(s.ctx, item.Id, b.Id, "owner")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ItemCompleted, s.store.items[item.Id].Status)
	assert.Equal(s.T(), model.ClaimCompleted, s.store.claims[b.Id].Status)
	assert.Equal(s.T(), model.ClaimRejected, s.store.claims[a.Id].Status)

	// Completed is terminal for both rows
	_, err = s.engine.UpdateClaim(s.ctx, b.Id, "owner", model.ClaimRejected, "")
	assert.ErrorIs(s.T(), err, ErrInvalidTransition)
	err = s.engine.MarkCompleted(s.ctx, item.Id, b.Id, "owner")
	assert.ErrorIs(s.T(), err, ErrInvalidTransition)
	_, err = s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimAccepted, "")
	assert.ErrorIs(s.T(), err, ErrInvalidTransition)

	s.assertInvariant(item.Id)
}

// A claim left pending on an item that was since completed through
// another claim must never be accepted, that would pull the item out
// of its terminal state.
func (s *EngineTestSuite) TestAcceptAfterCompletionRejected() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	b, _ := s.engine.CreateClaim(s.ctx, item.Id, "bob", "")

	_, err := s.engine.UpdateClaim(s.ctx, b.Id, "owner", model.ClaimAccepted, "")
	require.NoError(s.T(), err)
	err = s.engine.MarkCompleted(s.ctx, item.Id, b.Id, "owner")
	require.NoError(s.T(), err)

	_, err = s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimAccepted, "")
	assert.ErrorIs(s.T(), err, ErrInvalidTransition)

	assert.Equal(s.T(), model.ItemCompleted, s.store.items[item.Id].Status)
	assert.Equal(s.T(), model.ClaimPending, s.store.claims[a.Id].Status)
	s.assertInvariant(item.Id)
}

func (s *EngineTestSuite) TestOnlyOneClaimAcceptedAtATime() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	b, _ := s.engine.CreateClaim(s.ctx, item.Id, "bob", "")

	_, err := s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimAccepted, "")
	require.NoError(s.T(), err)

	_, err = s.engine.UpdateClaim(s.ctx, b.Id, "owner", model.ClaimAccepted, "")
	assert.ErrorIs(s.T(), err, ErrInvalidTransition)

	assert.Equal(s.T(), model.ClaimAccepted, s.store.claims[a.Id].Status)
	assert.Equal(s.T(), model.ClaimPending, s.store.claims[b.Id].Status)
	assert.Equal(s.T(), model.ItemReserved, s.store.items[item.Id].Status)
}

// Two simulated actors interleaving rejections against the same
// item. Re-derivation is idempotent, both orders converge.
func (s *EngineTestSuite) TestConcurrentRejectersConverge() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	b, _ := s.engine.CreateClaim(s.ctx, item.Id, "bob", "")

	var wg sync.WaitGroup
	for _, id := range []string{a.Id, b.Id} {
		wg.Add(1)
		go func(claimId string) {
			defer wg.Done()
			_, err := s.engine.UpdateClaim(s.ctx, claimId, "owner", model.ClaimRejected, "")
			assert.NoError(s.T(), err)
		}(id)
	}
	wg.Wait()

	// Both rejected, item must converge back to available
	assert.Equal(s.T(), model.ItemAvailable, s.store.items[item.Id].Status)
	s.assertInvariant(item.Id)
}

func (s *EngineTestSuite) TestSecondaryItemUpdateFailureIsSwallowed() {
	item := s.addItem("owner")
	s.store.failItemStatusUpdate = true

	claim, err := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), claim)

	// Claim exists, item status was left stale on purpose
	assert.Equal(s.T(), model.ClaimPending, s.store.claims[claim.Id].Status)
	assert.Equal(s.T(), model.ItemAvailable, s.store.items[item.Id].Status)
}

func (s *EngineTestSuite) TestPrimaryWriteFailureSurfaces() {
	item := s.addItem("owner")
	s.store.failClaimInsert = true

	_, err := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	assert.ErrorIs(s.T(), err, model.ErrRemoteWriteFailed)
}

func (s *EngineTestSuite) TestMutationInvalidatesItemListings() {
	item := s.addItem("owner")
	s.cache.Set(cache.Key(cache.DomainItems, map[string]any{"status": "available"}), "stale", 2*time.Minute)

	_, err := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	require.NoError(s.T(), err)

	_, ok := s.cache.Get(cache.Key(cache.DomainItems, map[string]any{"status": "available"}))
	assert.False(s.T(), ok, "write must invalidate the items prefix")
}

func (s *EngineTestSuite) TestDeleteItemOnlyFromEarlyStates() {
	item := s.addItem("owner")
	a, _ := s.engine.CreateClaim(s.ctx, item.Id, "alice", "")
	_, err := s.engine.UpdateClaim(s.ctx, a.Id, "owner", model.ClaimAccepted, "")
	require.NoError(s.T(), err)

	err = s.engine.DeleteItem(s.ctx, item.Id, "owner")
	assert.ErrorIs(s.T(), err, ErrNotDeletable)
}

func (s *EngineTestSuite) TestDeriveStatus() {
	claims := []*model.Claim{}
	assert.Equal(s.T(), model.ItemAvailable, DeriveStatus(claims))

	claims = append(claims, &model.Claim{Status: model.ClaimRejected})
	assert.Equal(s.T(), model.ItemAvailable, DeriveStatus(claims))

	claims = append(claims, &model.Claim{Status: model.ClaimPending})
	assert.Equal(s.T(), model.ItemRequested, DeriveStatus(claims))

	claims = append(claims, &model.Claim{Status: model.ClaimAccepted})
	assert.Equal(s.T(), model.ItemReserved, DeriveStatus(claims))

	claims = append(claims, &model.Claim{Status: model.ClaimCompleted})
	assert.Equal(s.T(), model.ItemCompleted, DeriveStatus(claims))
}

// In-memory fake of the remote store
type fakeStore struct {
	mtx    sync.Mutex
	items  map[string]*model.Item
	claims map[string]*model.Claim

	failItemStatusUpdate bool
	failClaimInsert      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:  make(map[string]*model.Item),
		claims: make(map[string]*model.Claim),
	}
}

func (self *fakeStore) GetItem(ctx context.Context, id string) (*model.Item, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	item, ok := self.items[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (self *fakeStore) InsertItem(ctx context.Context, item *model.Item) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.items[item.Id] = item
	return nil
}

func (self *fakeStore) UpdateItemStatus(ctx context.Context, id string, status model.ItemStatus) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.failItemStatusUpdate {
		return errors.New("connection reset")
	}
	item, ok := self.items[id]
	if !ok {
		return model.ErrNotFound
	}
	item.Status = status
	return nil
}

func (self *fakeStore) DeleteItem(ctx context.Context, id string) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	delete(self.items, id)
	return nil
}

func (self *fakeStore) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	claim, ok := self.claims[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	copied := *claim
	return &copied, nil
}

func (self *fakeStore) InsertClaim(ctx context.Context, claim *model.Claim) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.failClaimInsert {
		return errors.New("connection reset")
	}
	self.claims[claim.Id] = claim
	return nil
}

func (self *fakeStore) UpdateClaim(ctx context.Context, id string, updates map[string]any) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	claim, ok := self.claims[id]
	if !ok {
		return model.ErrNotFound
	}
	if status, ok := updates["status"]; ok {
		claim.Status = status.(model.ClaimStatus)
	}
	if message, ok := updates["message"]; ok {
		claim.Message = message.(string)
	}
	return nil
}

func (self *fakeStore) DeleteClaim(ctx context.Context, id string) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	delete(self.claims, id)
	return nil
}

func (self *fakeStore) ClaimsByItem(ctx context.Context, itemId string) (claims []*model.Claim, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	for _, claim := range self.claims {
		if claim.ItemId == itemId {
			copied := *claim
			claims = append(claims, &copied)
		}
	}
	return
}
