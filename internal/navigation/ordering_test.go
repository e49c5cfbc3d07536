package navigation

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/meridian-hq/meridian/internal/shared"
)

type mockOrderingRepo struct {
	nodes     map[int64]Node
	siblings  []Node
	swapErrs  []error
	swapCalls int
	lastSwap  [2]int64
}

func (m *mockOrderingRepo) GetNode(ctx context.Context, id int64) (Node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, shared.ErrNodeNotFound
	}
	return n, nil
}

func (m *mockOrderingRepo) ListSiblings(ctx context.Context, parentID *int64) ([]Node, error) {
	out := make([]Node, len(m.siblings))
	copy(out, m.siblings)
	return out, nil
}

func (m *mockOrderingRepo) SwapSortOrder(ctx context.Context, a, b Node) error {
	call := m.swapCalls
	m.swapCalls++
	m.lastSwap = [2]int64{a.ID, b.ID}
	if call < len(m.swapErrs) {
		return m.swapErrs[call]
	}
	return nil
}

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return c.err
}

func orderingFixture() *mockOrderingRepo {
	siblings := []Node{
		node(1, nil, "first", 1, ""),
		node(2, nil, "second", 2, ""),
		node(3, nil, "third", 3, ""),
	}
	nodes := make(map[int64]Node, len(siblings))
	for _, n := range siblings {
		nodes[n.ID] = n
	}
	return &mockOrderingRepo{nodes: nodes, siblings: siblings}
}

func TestMoveSiblingSwapsWithNeighbor(t *testing.T) {
	repo := orderingFixture()
	inv := &countingInvalidator{}
	svc := NewOrderingService(repo, inv, slog.Default())

	result, err := svc.MoveSibling(context.Background(), 2, DirectionUp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NoChange {
		t.Fatal("expected a swap, got no-change")
	}
	if repo.lastSwap != [2]int64{2, 1} {
		t.Fatalf("expected swap of (2,1), got %v", repo.lastSwap)
	}
	if inv.calls != 1 {
		t.Fatalf("expected one invalidation, got %d", inv.calls)
	}
	// Returned siblings reflect the post-swap order.
	if result.Siblings[0].ID != 2 || result.Siblings[1].ID != 1 {
		t.Fatalf("unexpected sibling order: %v", result.Siblings)
	}
	if result.Siblings[0].SortOrder != 1 || result.Siblings[1].SortOrder != 2 {
		t.Fatalf("sort orders not exchanged: %v", result.Siblings)
	}
}

func TestMoveSiblingBoundaryIsNoOp(t *testing.T) {
	repo := orderingFixture()
	inv := &countingInvalidator{}
	svc := NewOrderingService(repo, inv, slog.Default())

	for _, tc := range []struct {
		id  int64
		dir Direction
	}{
		{1, DirectionUp},
		{3, DirectionDown},
	} {
		result, err := svc.MoveSibling(context.Background(), tc.id, tc.dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.NoChange {
			t.Fatalf("expected no-change for node %d %s", tc.id, tc.dir)
		}
	}
	if repo.swapCalls != 0 {
		t.Fatalf("expected no swaps, got %d", repo.swapCalls)
	}
	if inv.calls != 0 {
		t.Fatalf("boundary moves must not invalidate, got %d", inv.calls)
	}
}

func TestMoveSiblingUnknownNode(t *testing.T) {
	repo := orderingFixture()
	svc := NewOrderingService(repo, &countingInvalidator{}, slog.Default())

	_, err := svc.MoveSibling(context.Background(), 99, DirectionUp)
	if !errors.Is(err, shared.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestMoveSiblingInvalidDirection(t *testing.T) {
	repo := orderingFixture()
	svc := NewOrderingService(repo, &countingInvalidator{}, slog.Default())

	if _, err := svc.MoveSibling(context.Background(), 1, Direction("sideways")); err == nil {
		t.Fatal("expected error for invalid direction")
	}
}

func TestMoveSiblingRetriesOnceOnConcurrentMove(t *testing.T) {
	repo := orderingFixture()
	repo.swapErrs = []error{ErrConcurrentMove}
	inv := &countingInvalidator{}
	svc := NewOrderingService(repo, inv, slog.Default())

	result, err := svc.MoveSibling(context.Background(), 2, DirectionDown)
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if repo.swapCalls != 2 {
		t.Fatalf("expected two swap attempts, got %d", repo.swapCalls)
	}
	if result.NoChange {
		t.Fatal("expected a swap after retry")
	}
}

func TestMoveSiblingSurfacesRepeatedConcurrentMove(t *testing.T) {
	repo := orderingFixture()
	repo.swapErrs = []error{ErrConcurrentMove, ErrConcurrentMove}
	svc := NewOrderingService(repo, &countingInvalidator{}, slog.Default())

	_, err := svc.MoveSibling(context.Background(), 2, DirectionDown)
	if !errors.Is(err, ErrConcurrentMove) {
		t.Fatalf("expected ErrConcurrentMove after retry, got %v", err)
	}
}
