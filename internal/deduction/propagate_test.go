package deduction

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagateConfirmSuspect(t *testing.T) {
	start := NewStore()
	out, ok, steps := Propagate(start, []Constraint{
		{Category: CategorySuspect, Value: "Butler", Kind: KindConfirm},
	})
	require.True(t, ok)
	assert.Equal(t, Domain{"Butler"}, out[CategorySuspect])
	assert.Equal(t, Domain{"Knife", "Poison", "Rope"}, out[CategoryWeapon])
	assert.Equal(t, Domain{"Kitchen", "Library", "Garden"}, out[CategoryLocation])
	require.Len(t, steps, 1)
	assert.Equal(t, PhaseConfirmation, steps[0].Phase)
	assert.Equal(t, StepConfirmation, steps[0].Kind)
	assert.Equal(t, "Confirmed Butler as suspect", steps[0].Message)
}

func TestPropagateDoesNotMutateInput(t *testing.T) {
	start := NewStore()
	before := start.Clone()
	_, _, _ = Propagate(start, []Constraint{
		{Category: CategoryWeapon, Value: "Rope", Kind: KindEliminate},
		{Category: CategorySuspect, Value: "Chef", Kind: KindConfirm},
	})
	if diff := cmp.Diff(before, start); diff != "" {
		t.Fatalf("input store mutated (-want +got):\n%s", diff)
	}
}

func TestPropagateEliminateAbsentValueIsSilent(t *testing.T) {
	confirmed, ok, _ := Propagate(NewStore(), []Constraint{
		{Category: CategorySuspect, Value: "Butler", Kind: KindConfirm},
	})
	require.True(t, ok)

	out, ok, steps := Propagate(confirmed, []Constraint{
		{Category: CategorySuspect, Value: "Chef", Kind: KindEliminate},
	})
	require.True(t, ok)
	assert.Empty(t, steps)
	if diff := cmp.Diff(confirmed, out); diff != "" {
		t.Fatalf("domains changed (-want +got):\n%s", diff)
	}
}

func TestPropagateOnlyRemovesLiteralValues(t *testing.T) {
	out, ok, steps := Propagate(NewStore(), []Constraint{
		{Category: CategorySuspect, Value: "Butler", Kind: KindConfirm},
		{Category: CategoryWeapon, Value: "Knife", Kind: KindConfirm},
	})
	require.True(t, ok)
	assert.Equal(t, Domain{"Kitchen", "Library", "Garden"}, out[CategoryLocation])
	assert.Len(t, steps, 2)
	for _, step := range steps {
		assert.NotContains(t, step.Message, "Removed")
	}
}

func TestPropagateSingletonRemovesSharedValue(t *testing.T) {
	// Values never collide across the real universes, so build a store by hand
	// to exercise the singleton rule.
	store := Store{
		CategorySuspect:  Domain{"Garden"},
		CategoryWeapon:   Domain{"Knife", "Poison", "Rope"},
		CategoryLocation: Domain{"Kitchen", "Library", "Garden"},
	}
	out, ok, steps := Propagate(store, nil)
	require.True(t, ok)
	assert.Equal(t, Domain{"Kitchen", "Library"}, out[CategoryLocation])
	require.Len(t, steps, 1)
	assert.Equal(t, "Removed Garden from location (already assigned to suspect)", steps[0].Message)
	assert.Equal(t, StepElimination, steps[0].Kind)
}

func TestPropagateSingletonLeavesOtherSingletonsAlone(t *testing.T) {
	store := Store{
		CategorySuspect:  Domain{"Garden"},
		CategoryWeapon:   Domain{"Knife", "Poison", "Rope"},
		CategoryLocation: Domain{"Garden"},
	}
	out, ok, steps := Propagate(store, nil)
	require.True(t, ok)
	assert.Equal(t, Domain{"Garden"}, out[CategoryLocation])
	assert.Empty(t, steps)
}

func TestPropagateChainsAcrossRounds(t *testing.T) {
	store := Store{
		CategorySuspect:  Domain{"A"},
		CategoryWeapon:   Domain{"A", "B"},
		CategoryLocation: Domain{"B", "C"},
	}
	out, ok, _ := Propagate(store, nil)
	require.True(t, ok)
	assert.Equal(t, Domain{"A"}, out[CategorySuspect])
	assert.Equal(t, Domain{"B"}, out[CategoryWeapon])
	assert.Equal(t, Domain{"C"}, out[CategoryLocation])
}

func TestPropagateDetectsInconsistency(t *testing.T) {
	out, ok, steps := Propagate(NewStore(), []Constraint{
		{Category: CategorySuspect, Value: "Butler", Kind: KindEliminate},
		{Category: CategorySuspect, Value: "Chef", Kind: KindEliminate},
		{Category: CategorySuspect, Value: "Gardener", Kind: KindEliminate},
	})
	assert.False(t, ok)
	assert.Empty(t, out[CategorySuspect])
	require.NotEmpty(t, steps)
	last := steps[len(steps)-1]
	assert.Equal(t, StepError, last.Kind)
	assert.Equal(t, PhaseInconsistency, last.Phase)
	assert.Equal(t, "Domain of suspect is empty - no solution possible", last.Message)
}

func TestPropagateIsIdempotent(t *testing.T) {
	log := []Constraint{
		{Category: CategoryLocation, Value: "Library", Kind: KindEliminate},
		{Category: CategoryWeapon, Value: "Poison", Kind: KindConfirm},
		{Category: CategorySuspect, Value: "Gardener", Kind: KindEliminate},
	}
	once, ok, _ := Propagate(NewStore(), log)
	require.True(t, ok)
	twice, ok, steps := Propagate(once, log)
	require.True(t, ok)
	assert.Empty(t, steps)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("second replay changed domains (-once +twice):\n%s", diff)
	}

	doubled := append(append([]Constraint{}, log...), log...)
	replayed, _, _ := Propagate(NewStore(), doubled)
	if diff := cmp.Diff(once, replayed); diff != "" {
		t.Fatalf("duplicated log changed domains (-once +doubled):\n%s", diff)
	}
}

func TestPropagateNeverGrowsDomains(t *testing.T) {
	logs := [][]Constraint{
		nil,
		{{Category: CategorySuspect, Value: "Chef", Kind: KindConfirm}},
		{{Category: CategoryWeapon, Value: "Knife", Kind: KindEliminate}, {Category: CategoryWeapon, Value: "Knife", Kind: KindConfirm}},
		{{Category: CategoryLocation, Value: "Kitchen", Kind: KindEliminate}, {Category: CategoryLocation, Value: "Garden", Kind: KindEliminate}},
	}
	for _, log := range logs {
		in := NewStore()
		out, _, _ := Propagate(in, log)
		for _, c := range Categories() {
			for _, v := range out[c] {
				assert.True(t, in[c].Contains(v), "%s gained %s", c, v)
			}
		}
	}
}

func TestConfirmDoesNotReviveEliminatedValue(t *testing.T) {
	out, ok, steps := Propagate(NewStore(), []Constraint{
		{Category: CategoryWeapon, Value: "Knife", Kind: KindEliminate},
		{Category: CategoryWeapon, Value: "Knife", Kind: KindConfirm},
	})
	require.True(t, ok)
	assert.Equal(t, Domain{"Poison", "Rope"}, out[CategoryWeapon])
	assert.Len(t, steps, 1)
}

func TestConfirmOnSingletonIsNoop(t *testing.T) {
	store := NewStore()
	store[CategoryLocation] = Domain{"Library"}
	out, ok, steps := Propagate(store, []Constraint{
		{Category: CategoryLocation, Value: "Kitchen", Kind: KindConfirm},
	})
	require.True(t, ok)
	assert.Equal(t, Domain{"Library"}, out[CategoryLocation])
	assert.Empty(t, steps)
}

func TestPropagateFixedPointIgnoresCategoryOrder(t *testing.T) {
	store := Store{
		CategorySuspect:  Domain{"A", "B"},
		CategoryWeapon:   Domain{"B"},
		CategoryLocation: Domain{"A", "C"},
	}
	want, ok, _ := Propagate(store, nil)
	require.True(t, ok)

	saved := categoryOrder
	t.Cleanup(func() { categoryOrder = saved })
	categoryOrder = []Category{CategoryLocation, CategoryWeapon, CategorySuspect}
	got, ok, _ := Propagate(store, nil)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fixed point depends on order (-want +got):\n%s", diff)
	}
}
