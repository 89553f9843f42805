package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ancile/internal/domain"
)

type GroupService struct {
	repo     domain.GroupRepository
	locks    domain.InventoryLocker
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewGroupService(r domain.GroupRepository, l domain.InventoryLocker, c domain.Cache, ttl time.Duration) *GroupService {
	return &GroupService{repo: r, locks: l, cache: c, cacheTTL: ttl}
}

func groupKey(subdomain string) string { return fmt.Sprintf("group:%s", subdomain) }

// GetGroup returns the microsite config with live remaining counts. The group
// and its allocations are cached; active holds are always read fresh.
func (s *GroupService) GetGroup(ctx context.Context, subdomain string) (domain.GroupView, error) {
	g, err := s.loadGroup(ctx, subdomain)
	if err != nil {
		return domain.GroupView{}, err
	}

	view := domain.GroupView{
		GroupID:   g.ID,
		Name:      g.Name,
		HeroImage: g.HeroImage,
		Inventory: make([]domain.RawRoom, 0, len(g.Blocks)),
	}
	for _, b := range g.Blocks {
		active, err := s.locks.ActiveLocks(ctx, g.ID, b.RoomType)
		if err != nil {
			return domain.GroupView{}, fmt.Errorf("count locks for %s/%s: %w", g.ID, b.RoomType, err)
		}
		view.Inventory = append(view.Inventory, domain.RawRoom{
			"room_type": b.RoomType,
			"price":     b.Price,
			"remaining": b.Remaining(active),
		})
	}
	return view, nil
}

func (s *GroupService) loadGroup(ctx context.Context, subdomain string) (domain.Group, error) {
	key := groupKey(subdomain)
	var cached domain.Group
	ok, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("group cache read failed, loading from repository")
	}
	if ok && err == nil {
		return cached, nil
	}
	g, err := s.repo.GetGroup(ctx, subdomain)
	if err != nil {
		return domain.Group{}, err
	}
	log.Info().Str("subdomain", subdomain).Str("group_id", g.ID).Msg("group loaded")
	_ = s.cache.Set(ctx, key, cachedGroup(g), int(s.cacheTTL.Seconds()))
	return g, nil
}

// Invalidate drops cached configs for a group under both of its keys.
func (s *GroupService) Invalidate(ctx context.Context, b domain.InventoryBlock) {
	_ = s.cache.Del(ctx, groupKey(b.GroupID))
	if b.Subdomain != "" {
		_ = s.cache.Del(ctx, groupKey(b.Subdomain))
	}
}

// Heatmap returns the demand vs supply view per region.
func (s *GroupService) Heatmap(ctx context.Context) ([]domain.Region, error) {
	return s.repo.ListRegions(ctx)
}

// cachedGroup copies blocks so the cached value never aliases the repo's slice.
func cachedGroup(in domain.Group) domain.Group {
	out := in
	if n := len(in.Blocks); n > 0 {
		out.Blocks = make([]domain.InventoryBlock, n)
		copy(out.Blocks, in.Blocks)
	}
	return out
}
