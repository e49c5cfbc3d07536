package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/meridian-hq/meridian/internal/shared"
)

// OrderingRepository defines the data access the ordering service needs.
type OrderingRepository interface {
	GetNode(ctx context.Context, id int64) (Node, error)
	ListSiblings(ctx context.Context, parentID *int64) ([]Node, error)
	SwapSortOrder(ctx context.Context, a, b Node) error
}

// Invalidator drops cached resolutions after a mutation. Implemented by
// ResolutionCache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// OrderingService mutates sibling order. Moves within one sibling group are
// serialized through a per-parent mutex; moves on different groups proceed
// in parallel.
type OrderingService struct {
	repo        OrderingRepository
	invalidator Invalidator
	logger      *slog.Logger

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

// NewOrderingService builds OrderingService instance.
func NewOrderingService(repo OrderingRepository, invalidator Invalidator, logger *slog.Logger) *OrderingService {
	return &OrderingService{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
		groups:      make(map[string]*sync.Mutex),
	}
}

// MoveSibling swaps the node's sort_order with its adjacent sibling in the
// given direction. Moving the first node up or the last node down is a
// normal no-op outcome, not an error. On success every cached resolution is
// invalidated, since the shared flat node set feeds all trees.
func (s *OrderingService) MoveSibling(ctx context.Context, nodeID int64, dir Direction) (MoveResult, error) {
	if dir != DirectionUp && dir != DirectionDown {
		return MoveResult{}, fmt.Errorf("navigation: invalid direction %q", dir)
	}

	node, err := s.repo.GetNode(ctx, nodeID)
	if err != nil {
		return MoveResult{}, err
	}

	lock := s.groupLock(node.ParentID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 0; ; attempt++ {
		siblings, err := s.repo.ListSiblings(ctx, node.ParentID)
		if err != nil {
			return MoveResult{}, err
		}

		idx := -1
		for i, sib := range siblings {
			if sib.ID == nodeID {
				idx = i
				break
			}
		}
		if idx < 0 {
			// Deleted between the lookup and the lock.
			return MoveResult{}, shared.ErrNodeNotFound
		}

		if (dir == DirectionUp && idx == 0) || (dir == DirectionDown && idx == len(siblings)-1) {
			return MoveResult{NoChange: true, Siblings: siblings}, nil
		}

		other := idx - 1
		if dir == DirectionDown {
			other = idx + 1
		}

		err = s.repo.SwapSortOrder(ctx, siblings[idx], siblings[other])
		if errors.Is(err, ErrConcurrentMove) && attempt == 0 {
			// Another instance reordered the group; re-read and retry once.
			continue
		}
		if err != nil {
			return MoveResult{}, err
		}

		siblings[idx].SortOrder, siblings[other].SortOrder = siblings[other].SortOrder, siblings[idx].SortOrder
		siblings[idx], siblings[other] = siblings[other], siblings[idx]

		if s.invalidator != nil {
			if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
				s.logger.Warn("invalidate after move", slog.Int64("node", nodeID), slog.Any("error", err))
			}
		}
		return MoveResult{Siblings: siblings}, nil
	}
}

func (s *OrderingService) groupLock(parentID *int64) *sync.Mutex {
	key := "root"
	if parentID != nil {
		key = strconv.FormatInt(*parentID, 10)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.groups[key]
	if !ok {
		lock = &sync.Mutex{}
		s.groups[key] = lock
	}
	return lock
}
