package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpantry/pantry/src/lifecycle"
	"github.com/openpantry/pantry/src/utils/cache"
	"github.com/openpantry/pantry/src/utils/config"
	"github.com/openpantry/pantry/src/utils/logger"
	"github.com/openpantry/pantry/src/utils/model"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidLocation = errors.New("invalid location")
	ErrMissingUser     = errors.New("claim listings require a user")
)

// Source is the slice of the remote store the façade reads from.
type Source interface {
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, filter model.ItemFilter) ([]*model.Item, error)
	ListNearbyItems(ctx context.Context, bounds model.GeoBounds, filter model.ItemFilter) ([]*model.Item, error)
	ListClaims(ctx context.Context, filter model.ClaimFilter) ([]*model.Claim, error)
	ClaimsByItem(ctx context.Context, itemId string) ([]*model.Claim, error)
	UserStats(ctx context.Context, userId string) (*model.UserStats, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListCollaborations(ctx context.Context, memberId string) ([]*model.Collaboration, error)
	GetCollaboration(ctx context.Context, id string) (*model.Collaboration, error)
	ListStories(ctx context.Context, limit int) ([]*model.Story, error)
}

// Repairer queues asynchronous item-status read repair.
type Repairer interface {
	RequestRepair(itemId string)
}

// ItemDetails is an item with its full claim set.
type ItemDetails struct {
	Item   *model.Item    `json:"item"`
	Claims []*model.Claim `json:"claims"`
}

// Facade composes the cache layer and the remote store to serve
// paginated, filtered, geo-bounded listings. Every read goes through
// the TTL store and the in-flight de-duplicator, a failed read
// leaves the cache untouched.
type Facade struct {
	log    *logrus.Entry
	config *config.Config

	source   Source
	loader   *cache.Loader
	repairer Repairer
}

func NewFacade(config *config.Config) (self *Facade) {
	self = new(Facade)
	self.log = logger.NewSublogger("query")
	self.config = config
	return
}

func (self *Facade) WithSource(source Source) *Facade {
	self.source = source
	return self
}

func (self *Facade) WithLoader(loader *cache.Loader) *Facade {
	self.loader = loader
	return self
}

func (self *Facade) WithRepairer(repairer Repairer) *Facade {
	self.repairer = repairer
	return self
}

// ValidateLocation rejects the (0,0) null island default and
// out-of-range coordinates before they reach any geo query.
func ValidateLocation(latitude, longitude float64) error {
	if latitude == 0 && longitude == 0 {
		return ErrInvalidLocation
	}
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return ErrInvalidLocation
	}
	return nil
}

func (self *Facade) normalize(limit int) int {
	if limit <= 0 {
		return self.config.Gateway.DefaultPageSize
	}
	if limit > self.config.Gateway.MaxPageSize {
		return self.config.Gateway.MaxPageSize
	}
	return limit
}

func (self *Facade) Items(ctx context.Context, filter model.ItemFilter) (items []*model.Item, err error) {
	filter.Limit = self.normalize(filter.Limit)

	key := cache.Key(cache.DomainItems, map[string]any{
		"owner":  filter.OwnerId,
		"status": filter.Status,
		"type":   filter.ItemType,
		"cat":    filter.Category,
		"collab": filter.CollaborationId,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.ItemsTtl,
		func(ctx context.Context) ([]*model.Item, error) {
			items, err := self.source.ListItems(ctx, filter)
			if err != nil {
				return nil, readFailed("items", err)
			}
			return items, nil
		})
}

func (self *Facade) NearbyItems(ctx context.Context, bounds model.GeoBounds, filter model.ItemFilter) (items []*model.Item, err error) {
	err = ValidateLocation(bounds.MinLatitude, bounds.MinLongitude)
	if err != nil {
		return
	}
	err = ValidateLocation(bounds.MaxLatitude, bounds.MaxLongitude)
	if err != nil {
		return
	}
	filter.Limit = self.normalize(filter.Limit)

	key := cache.Key(cache.DomainNearbyItems, map[string]any{
		"min_lat": bounds.MinLatitude,
		"max_lat": bounds.MaxLatitude,
		"min_lon": bounds.MinLongitude,
		"max_lon": bounds.MaxLongitude,
		"status":  filter.Status,
		"type":    filter.ItemType,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.NearbyItemsTtl,
		func(ctx context.Context) ([]*model.Item, error) {
			items, err := self.source.ListNearbyItems(ctx, bounds, filter)
			if err != nil {
				return nil, readFailed("nearby items", err)
			}
			return items, nil
		})
}

// Details returns one item with its claim set. When the advisory
// status drifted from the claim set a read repair is queued, the
// response carries the derived truth.
func (self *Facade) Details(ctx context.Context, itemId string) (details *ItemDetails, err error) {
	key := cache.Key(cache.DomainItems, map[string]any{"id": itemId})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.ItemsTtl,
		func(ctx context.Context) (*ItemDetails, error) {
			item, err := self.source.GetItem(ctx, itemId)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return nil, err
				}
				return nil, readFailed("item", err)
			}
			claims, err := self.source.ClaimsByItem(ctx, itemId)
			if err != nil {
				return nil, readFailed("item claims", err)
			}

			derived := lifecycle.DeriveStatus(claims)
			if derived != item.Status {
				self.log.WithField("item_id", itemId).
					Debug("Advisory status drifted, queueing repair")
				if self.repairer != nil {
					self.repairer.RequestRepair(itemId)
				}
				item.Status = derived
			}

			return &ItemDetails{Item: item, Claims: claims}, nil
		})
}

func (self *Facade) Claims(ctx context.Context, filter model.ClaimFilter) (claims []*model.Claim, err error) {
	userId := filter.ClaimerId
	if userId == "" {
		userId = filter.OwnerId
	}
	if userId == "" {
		return nil, ErrMissingUser
	}
	filter.Limit = self.normalize(filter.Limit)

	key := cache.UserKey(cache.DomainClaims, userId, map[string]any{
		"item":   filter.ItemId,
		"status": filter.Status,
		"role":   filter.OwnerId != "",
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.ClaimsTtl,
		func(ctx context.Context) ([]*model.Claim, error) {
			claims, err := self.source.ListClaims(ctx, filter)
			if err != nil {
				return nil, readFailed("claims", err)
			}
			return claims, nil
		})
}

func (self *Facade) Stats(ctx context.Context, userId string) (stats *model.UserStats, err error) {
	key := cache.UserKey(cache.DomainStats, userId, nil)

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.StatsTtl,
		func(ctx context.Context) (*model.UserStats, error) {
			stats, err := self.source.UserStats(ctx, userId)
			if err != nil {
				return nil, readFailed("stats", err)
			}
			return stats, nil
		})
}

func (self *Facade) Profile(ctx context.Context, userId string) (profile *model.Profile, err error) {
	key := cache.Key(cache.DomainProfile, map[string]any{"id": userId})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.ProfileTtl,
		func(ctx context.Context) (*model.Profile, error) {
			profile, err := self.source.GetProfile(ctx, userId)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return nil, err
				}
				return nil, readFailed("profile", err)
			}
			return profile, nil
		})
}

func (self *Facade) Collaborations(ctx context.Context, memberId string) (collaborations []*model.Collaboration, err error) {
	key := cache.Key(cache.DomainCollaborations, map[string]any{"member": memberId})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.CollaborationsTtl,
		func(ctx context.Context) ([]*model.Collaboration, error) {
			collaborations, err := self.source.ListCollaborations(ctx, memberId)
			if err != nil {
				return nil, readFailed("collaborations", err)
			}
			return collaborations, nil
		})
}

func (self *Facade) CollaborationDetails(ctx context.Context, id string) (collaboration *model.Collaboration, err error) {
	key := cache.Key(cache.DomainCollaborationDetails, map[string]any{"id": id})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.CollaborationDetailsTtl,
		func(ctx context.Context) (*model.Collaboration, error) {
			collaboration, err := self.source.GetCollaboration(ctx, id)
			if err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return nil, err
				}
				return nil, readFailed("collaboration", err)
			}
			return collaboration, nil
		})
}

func (self *Facade) Stories(ctx context.Context, limit int) (stories []*model.Story, err error) {
	limit = self.normalize(limit)
	key := cache.Key(cache.DomainStories, map[string]any{"limit": limit})

	return cache.GetOrLoad(ctx, self.loader, key, self.config.Cache.StoriesTtl,
		func(ctx context.Context) ([]*model.Story, error) {
			stories, err := self.source.ListStories(ctx, limit)
			if err != nil {
				return nil, readFailed("stories", err)
			}
			return stories, nil
		})
}

func readFailed(what string, err error) error {
	return fmt.Errorf("%w: listing %s: %v", model.ErrRemoteReadFailed, what, err)
}
