package reconcile

import (
	"reflect"
	"sort"

	"github.com/vanshika/scansync/internal/domain"
)

// DiffEntities matches persisted and next entities by key. New keys become
// creates with the full payload; shared keys become updates carrying only the
// properties whose values differ, or nothing when all are equal. Persisted-only
// keys become deletes only when allowDelete is set, sorted by key after every
// create and update. Duplicate keys in next are collapsed, the last one wins.
func DiffEntities(persisted, next []domain.Entity, allowDelete bool) []domain.EntityOperation {
	old := make(map[string]domain.Entity, len(persisted))
	for _, e := range persisted {
		old[e.Key] = e
	}

	var ops []domain.EntityOperation
	seen := make(map[string]struct{}, len(next))
	for _, e := range collapseEntities(next) {
		seen[e.Key] = struct{}{}
		prev, ok := old[e.Key]
		if !ok {
			ops = append(ops, domain.EntityOperation{
				Kind:       domain.OperationCreate,
				EntityType: e.Type,
				Class:      e.Class,
				Key:        e.Key,
				Properties: copyProperties(e.Properties),
			})
			continue
		}
		if changed := changedProperties(prev.Properties, e.Properties); len(changed) > 0 {
			ops = append(ops, domain.EntityOperation{
				Kind:       domain.OperationUpdate,
				EntityType: e.Type,
				Class:      e.Class,
				Key:        e.Key,
				Properties: changed,
			})
		}
	}

	if !allowDelete {
		return ops
	}
	for _, key := range staleKeys(old, seen) {
		prev := old[key]
		ops = append(ops, domain.EntityOperation{
			Kind:       domain.OperationDelete,
			EntityType: prev.Type,
			Class:      prev.Class,
			Key:        key,
		})
	}
	return ops
}

// DiffRelationships applies the DiffEntities rules to relationships.
func DiffRelationships(persisted, next []domain.Relationship, allowDelete bool) []domain.RelationshipOperation {
	old := make(map[string]domain.Relationship, len(persisted))
	for _, r := range persisted {
		old[r.Key] = r
	}

	var ops []domain.RelationshipOperation
	seen := make(map[string]struct{}, len(next))
	for _, r := range collapseRelationships(next) {
		seen[r.Key] = struct{}{}
		prev, ok := old[r.Key]
		if !ok {
			ops = append(ops, domain.RelationshipOperation{
				Kind:             domain.OperationCreate,
				RelationshipType: r.Type,
				Class:            r.Class,
				Key:              r.Key,
				FromKey:          r.FromKey,
				ToKey:            r.ToKey,
				Properties:       copyProperties(r.Properties),
				Mapping:          r.Mapping,
			})
			continue
		}
		if changed := changedProperties(prev.Properties, r.Properties); len(changed) > 0 {
			ops = append(ops, domain.RelationshipOperation{
				Kind:             domain.OperationUpdate,
				RelationshipType: r.Type,
				Class:            r.Class,
				Key:              r.Key,
				FromKey:          r.FromKey,
				ToKey:            r.ToKey,
				Properties:       changed,
			})
		}
	}

	if !allowDelete {
		return ops
	}
	for _, key := range staleKeys(old, seen) {
		prev := old[key]
		ops = append(ops, domain.RelationshipOperation{
			Kind:             domain.OperationDelete,
			RelationshipType: prev.Type,
			Class:            prev.Class,
			Key:              key,
			FromKey:          prev.FromKey,
			ToKey:            prev.ToKey,
		})
	}
	return ops
}

// changedProperties returns the next values of every property of next that
// differs from prev. A property missing from prev compares as nil.
func changedProperties(prev, next map[string]any) map[string]any {
	changed := make(map[string]any)
	for k, v := range next {
		if !Equal(prev[k], v) {
			changed[k] = v
		}
	}
	return changed
}

// Equal compares two property values by value after normalizing the numeric
// and list representations the graph driver may hand back.
func Equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	case *int64:
		if val == nil {
			return nil
		}
		return *val
	case *string:
		if val == nil {
			return nil
		}
		return *val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}

func collapseEntities(next []domain.Entity) []domain.Entity {
	index := make(map[string]int, len(next))
	out := make([]domain.Entity, 0, len(next))
	for _, e := range next {
		if i, ok := index[e.Key]; ok {
			out[i] = e
			continue
		}
		index[e.Key] = len(out)
		out = append(out, e)
	}
	return out
}

func collapseRelationships(next []domain.Relationship) []domain.Relationship {
	index := make(map[string]int, len(next))
	out := make([]domain.Relationship, 0, len(next))
	for _, r := range next {
		if i, ok := index[r.Key]; ok {
			out[i] = r
			continue
		}
		index[r.Key] = len(out)
		out = append(out, r)
	}
	return out
}

func staleKeys[V any](old map[string]V, seen map[string]struct{}) []string {
	var keys []string
	for key := range old {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func copyProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
