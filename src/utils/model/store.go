package model

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ItemFilter narrows item listings. Zero values mean "any".
type ItemFilter struct {
	OwnerId         string
	Status          ItemStatus
	ItemType        ItemType
	Category        string
	CollaborationId string

	Limit  int
	Offset int
}

// GeoBounds is a latitude/longitude bounding box for nearby queries.
type GeoBounds struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	ItemId    string
	ClaimerId string
	OwnerId   string
	Status    ClaimStatus

	Limit  int
	Offset int
}

// Store is the gorm-backed access layer over the remote Postgres
// store. All multi-row correctness is built above it, no multi-row
// transactions are assumed.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) (self *Store) {
	self = new(Store)
	self.DB = db
	return
}

func (self *Store) GetItem(ctx context.Context, id string) (item *Item, err error) {
	item = new(Item)
	err = self.DB.WithContext(ctx).First(item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return
}

func (self *Store) InsertItem(ctx context.Context, item *Item) (err error) {
	return self.DB.WithContext(ctx).Create(item).Error
}

func (self *Store) UpdateItemStatus(ctx context.Context, id string, status ItemStatus) (err error) {
	return self.DB.WithContext(ctx).
		Model(&Item{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now()}).
		Error
}

func (self *Store) DeleteItem(ctx context.Context, id string) (err error) {
	return self.DB.WithContext(ctx).Delete(&Item{}, "id = ?", id).Error
}

func (self *Store) ListItems(ctx context.Context, filter ItemFilter) (items []*Item, err error) {
	q := self.DB.WithContext(ctx).Model(&Item{})
	if filter.OwnerId != "" {
		q = q.Where("owner_id = ?", filter.OwnerId)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ItemType != "" {
		q = q.Where("item_type = ?", filter.ItemType)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.CollaborationId != "" {
		q = q.Where("collaboration_id = ?", filter.CollaborationId)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err = q.Order("created_at DESC").Offset(filter.Offset).Find(&items).Error
	return
}

func (self *Store) ListNearbyItems(ctx context.Context, bounds GeoBounds, filter ItemFilter) (items []*Item, err error) {
	q := self.DB.WithContext(ctx).Model(&Item{}).
		Where("latitude BETWEEN ? AND ?", bounds.MinLatitude, bounds.MaxLatitude).
		Where("longitude BETWEEN ? AND ?", bounds.MinLongitude, bounds.MaxLongitude)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ItemType != "" {
		q = q.Where("item_type = ?", filter.ItemType)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err = q.Order("created_at DESC").Offset(filter.Offset).Find(&items).Error
	return
}

func (self *Store) GetClaim(ctx context.Context, id string) (claim *Claim, err error) {
	claim = new(Claim)
	err = self.DB.WithContext(ctx).First(claim, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return
}

func (self *Store) InsertClaim(ctx context.Context, claim *Claim) (err error) {
	return self.DB.WithContext(ctx).Create(claim).Error
}

func (self *Store) UpdateClaim(ctx context.Context, id string, updates map[string]any) (err error) {
	updates["updated_at"] = time.Now()
	return self.DB.WithContext(ctx).
		Model(&Claim{}).
		Where("id = ?", id).
		Updates(updates).
		Error
}

func (self *Store) DeleteClaim(ctx context.Context, id string) (err error) {
	return self.DB.WithContext(ctx).Delete(&Claim{}, "id = ?", id).Error
}

func (self *Store) ListClaims(ctx context.Context, filter ClaimFilter) (claims []*Claim, err error) {
	q := self.DB.WithContext(ctx).Model(&Claim{})
	if filter.ItemId != "" {
		q = q.Where("item_id = ?", filter.ItemId)
	}
	if filter.ClaimerId != "" {
		q = q.Where("claimer_id = ?", filter.ClaimerId)
	}
	if filter.OwnerId != "" {
		q = q.Where("owner_id = ?", filter.OwnerId)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err = q.Order("created_at DESC").Offset(filter.Offset).Find(&claims).Error
	return
}

// ClaimsByItem returns the full claim set of one item, the
// authoritative input for status re-derivation.
func (self *Store) ClaimsByItem(ctx context.Context, itemId string) (claims []*Claim, err error) {
	err = self.DB.WithContext(ctx).
		Where("item_id = ?", itemId).
		Order("created_at ASC").
		Find(&claims).
		Error
	return
}

func (self *Store) InsertMessage(ctx context.Context, message *Message) (err error) {
	// The server-assigned id is written back into message.Id
	return self.DB.WithContext(ctx).Create(message).Error
}

// ScopeMessages calls the stored procedure joining messages with
// sender display names, ordered by created_at then id.
func (self *Store) ScopeMessages(ctx context.Context, scopeId string) (messages []*ScopeMessage, err error) {
	err = self.DB.WithContext(ctx).
		Raw("SELECT * FROM pantry_scope_messages(?)", scopeId).
		Scan(&messages).
		Error
	return
}

// UserStats calls the aggregated per-user statistics stored procedure.
func (self *Store) UserStats(ctx context.Context, userId string) (stats *UserStats, err error) {
	stats = new(UserStats)
	err = self.DB.WithContext(ctx).
		Raw("SELECT * FROM pantry_user_stats(?)", userId).
		Scan(stats).
		Error
	return
}

func (self *Store) GetProfile(ctx context.Context, id string) (profile *Profile, err error) {
	profile = new(Profile)
	err = self.DB.WithContext(ctx).First(profile, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return
}

func (self *Store) ListCollaborations(ctx context.Context, memberId string) (collaborations []*Collaboration, err error) {
	q := self.DB.WithContext(ctx).Model(&Collaboration{})
	if memberId != "" {
		q = q.Where("? = ANY(member_ids) OR owner_id = ?", memberId, memberId)
	}
	err = q.Order("created_at DESC").Find(&collaborations).Error
	return
}

func (self *Store) GetCollaboration(ctx context.Context, id string) (collaboration *Collaboration, err error) {
	collaboration = new(Collaboration)
	err = self.DB.WithContext(ctx).First(collaboration, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return
}

func (self *Store) ListStories(ctx context.Context, limit int) (stories []*Story, err error) {
	q := self.DB.WithContext(ctx).Model(&Story{})
	if limit > 0 {
		q = q.Limit(limit)
	}
	err = q.Order("created_at DESC").Find(&stories).Error
	return
}
