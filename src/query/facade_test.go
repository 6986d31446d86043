package query

import (
	"context"
	"errors"
	"testing"

	"github.com/openpantry/pantry/src/utils/cache"
	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"
)

func TestFacadeTestSuite(t *testing.T) {
	suite.Run(t, new(FacadeTestSuite))
}

type FacadeTestSuite struct {
	suite.Suite

	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	source   *fakeSource
	store    *cache.Store
	repairer *fakeRepairer
	facade   *Facade
}

func (s *FacadeTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()
}

func (s *FacadeTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *FacadeTestSuite) SetupTest() {
	s.source = new(fakeSource)
	s.store = cache.NewStore(100)
	s.repairer = new(fakeRepairer)
	s.facade = NewFacade(s.config).
		WithSource(s.source).
		WithLoader(cache.NewLoader(s.store)).
		WithRepairer(s.repairer)
}

func (s *FacadeTestSuite) TestItemsAreCached() {
	for i := 0; i < 3; i++ {
		_, err := s.facade.Items(s.ctx, model.ItemFilter{Status: model.ItemAvailable})
		require.NoError(s.T(), err)
	}
	assert.Equal(s.T(), int64(1), s.source.listItemCalls.Load())
}

// A write invalidates the items prefix, the next read must bypass
// the pre-existing cached entry and hit the remote store.
func (s *FacadeTestSuite) TestInvalidatedPrefixBypassesCache() {
	_, err := s.facade.Items(s.ctx, model.ItemFilter{Status: model.ItemAvailable})
	require.NoError(s.T(), err)

	// What the lifecycle engine does after a claim create
	s.store.Invalidate(cache.Prefix(cache.DomainItems))

	_, err = s.facade.Items(s.ctx, model.ItemFilter{Status: model.ItemAvailable})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), s.source.listItemCalls.Load())
}

func (s *FacadeTestSuite) TestReadFailureLeavesCacheUntouched() {
	s.source.fail = true
	_, err := s.facade.Items(s.ctx, model.ItemFilter{})
	assert.ErrorIs(s.T(), err, model.ErrRemoteReadFailed)
	assert.Zero(s.T(), s.store.Len())

	s.source.fail = false
	_, err = s.facade.Items(s.ctx, model.ItemFilter{})
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), s.source.listItemCalls.Load())
}

func (s *FacadeTestSuite) TestNearbyRejectsNullIsland() {
	_, err := s.facade.NearbyItems(s.ctx, model.GeoBounds{}, model.ItemFilter{})
	assert.ErrorIs(s.T(), err, ErrInvalidLocation)

	_, err = s.facade.NearbyItems(s.ctx, model.GeoBounds{
		MinLatitude: -91, MaxLatitude: 50, MinLongitude: 10, MaxLongitude: 11,
	}, model.ItemFilter{})
	assert.ErrorIs(s.T(), err, ErrInvalidLocation)
}

func (s *FacadeTestSuite) TestDetailsRepairsDriftedStatus() {
	s.source.item = &model.Item{Id: "i1", OwnerId: "owner", Status: model.ItemRequested}
	// No active claims, the advisory status is stale
	s.source.claims = nil

	details, err := s.facade.Details(s.ctx, "i1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ItemAvailable, details.Item.Status, "response carries the derived truth")
	assert.Equal(s.T(), []string{"i1"}, s.repairer.requested)
}

func (s *FacadeTestSuite) TestClaimsRequireUser() {
	_, err := s.facade.Claims(s.ctx, model.ClaimFilter{})
	assert.ErrorIs(s.T(), err, ErrMissingUser)
}

func (s *FacadeTestSuite) TestClaimsCachedPerUser() {
	_, err := s.facade.Claims(s.ctx, model.ClaimFilter{ClaimerId: "alice"})
	require.NoError(s.T(), err)
	_, err = s.facade.Claims(s.ctx, model.ClaimFilter{ClaimerId: "bob"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), s.source.listClaimCalls.Load())

	// Invalidating alice leaves bob cached
	s.store.Invalidate(cache.UserPrefix(cache.DomainClaims, "alice"))
	_, err = s.facade.Claims(s.ctx, model.ClaimFilter{ClaimerId: "alice"})
	require.NoError(s.T(), err)
	_, err = s.facade.Claims(s.ctx, model.ClaimFilter{ClaimerId: "bob"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), s.source.listClaimCalls.Load())
}

func (s *FacadeTestSuite) TestLimitIsNormalized() {
	_, err := s.facade.Items(s.ctx, model.ItemFilter{Limit: 100000})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.config.Gateway.MaxPageSize, s.source.lastLimit)
}

type fakeRepairer struct {
	requested []string
}

func (self *fakeRepairer) RequestRepair(itemId string) {
	self.requested = append(self.requested, itemId)
}

type fakeSource struct {
	listItemCalls  atomic.Int64
	listClaimCalls atomic.Int64
	lastLimit      int
	fail           bool

	item   *model.Item
	claims []*model.Claim
}

func (self *fakeSource) GetItem(ctx context.Context, id string) (*model.Item, error) {
	if self.item == nil {
		return nil, model.ErrNotFound
	}
	copied := *self.item
	return &copied, nil
}

func (self *fakeSource) ListItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error) {
	self.listItemCalls.Inc()
	self.lastLimit = filter.Limit
	if self.fail {
		return nil, errors.New("connection reset")
	}
	return []*model.Item{}, nil
}

func (self *fakeSource) ListNearbyItems(ctx context.Context, bounds model.GeoBounds, filter model.ItemFilter) ([]*model.Item, error) {
	return []*model.Item{}, nil
}

func (self *fakeSource) ListClaims(ctx context.Context, filter model.ClaimFilter) ([]*model.Claim, error) {
	self.listClaimCalls.Inc()
	return []*model.Claim{}, nil
}

func (self *fakeSource) ClaimsByItem(ctx context.Context, itemId string) ([]*model.Claim, error) {
	return self.claims, nil
}

func (self *fakeSource) UserStats(ctx context.Context, userId string) (*model.UserStats, error) {
	return &model.UserStats{UserId: userId}, nil
}

func (self *fakeSource) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	return &model.Profile{Id: id}, nil
}

func (self *fakeSource) ListCollaborations(ctx context.Context, memberId string) ([]*model.Collaboration, error) {
	return []*model.Collaboration{}, nil
}

func (self *fakeSource) GetCollaboration(ctx context.Context, id string) (*model.Collaboration, error) {
	return &model.Collaboration{Id: id}, nil
}

func (self *fakeSource) ListStories(ctx context.Context, limit int) ([]*model.Story, error) {
	return []*model.Story{}, nil
}
