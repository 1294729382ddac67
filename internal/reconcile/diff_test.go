package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vanshika/scansync/internal/domain"
)

func TestDiffEntities_UpdateCarriesOnlyChangedProperties(t *testing.T) {
	persisted := []domain.Entity{{Key: "a", Properties: map[string]any{"x": int64(1), "y": "same"}}}
	next := []domain.Entity{{Key: "a", Type: "t", Properties: map[string]any{"x": int64(2), "y": "same"}}}

	ops := DiffEntities(persisted, next, false)
	assert.Equal(t, []domain.EntityOperation{{
		Kind:       domain.OperationUpdate,
		EntityType: "t",
		Key:        "a",
		Properties: map[string]any{"x": int64(2)},
	}}, ops)
}

func TestDiffEntities_NewNullMatchesMissingProperty(t *testing.T) {
	persisted := []domain.Entity{{Key: "a", Properties: map[string]any{}}}
	next := []domain.Entity{{Key: "a", Properties: map[string]any{"resolvedDate": nil}}}

	assert.Empty(t, DiffEntities(persisted, next, false))
}

func TestDiffEntities_DuplicateKeysCollapse(t *testing.T) {
	next := []domain.Entity{
		{Key: "a", Properties: map[string]any{"v": 1}},
		{Key: "b"},
		{Key: "a", Properties: map[string]any{"v": 2}},
	}

	ops := DiffEntities(nil, next, false)
	if assert.Len(t, ops, 2) {
		assert.Equal(t, "a", ops[0].Key)
		assert.Equal(t, 2, ops[0].Properties["v"])
		assert.Equal(t, "b", ops[1].Key)
	}
}

func TestDiffEntities_CreateDoesNotAliasInput(t *testing.T) {
	props := map[string]any{"v": 1}
	ops := DiffEntities(nil, []domain.Entity{{Key: "a", Properties: props}}, false)
	props["v"] = 2
	assert.Equal(t, 1, ops[0].Properties["v"])
}

func TestDiffRelationships(t *testing.T) {
	persisted := []domain.Relationship{
		{Key: "a|has|b", FromKey: "a", ToKey: "b", Properties: map[string]any{"displayName": "HAS"}},
		{Key: "a|has|c", FromKey: "a", ToKey: "c"},
	}
	next := []domain.Relationship{
		{Key: "a|has|b", FromKey: "a", ToKey: "b", Properties: map[string]any{"displayName": "HAS"}},
		{Key: "a|has|d", FromKey: "a", ToKey: "d"},
	}

	ops := DiffRelationships(persisted, next, true)
	if assert.Len(t, ops, 2) {
		assert.Equal(t, domain.OperationCreate, ops[0].Kind)
		assert.Equal(t, "a|has|d", ops[0].Key)
		assert.Equal(t, domain.OperationDelete, ops[1].Kind)
		assert.Equal(t, "a|has|c", ops[1].Key)
	}
}

func TestEqual(t *testing.T) {
	ms := int64(5)
	cases := []struct {
		name string
		a, b any
		want bool
	}{
		{"int widths", 5, int64(5), true},
		{"float widths", float32(1.5), 1.5, true},
		{"string lists", []string{"a"}, []any{"a"}, true},
		{"pointer", &ms, int64(5), true},
		{"nil pointer", (*int64)(nil), nil, true},
		{"different values", "a", "b", false},
		{"list order", []string{"a", "b"}, []any{"b", "a"}, false},
		{"nil vs zero", nil, int64(0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Equal(tc.a, tc.b))
		})
	}
}
