package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/graph"
)

// Scope identifies the integration instance whose graph slice the repository
// reads and writes. Every query is filtered on both ids.
type Scope struct {
	AccountID  string
	InstanceID string
}

// Repository encapsulates graph persistence operations.
type Repository struct {
	client graph.Client
	scope  Scope
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client, scope Scope) *Repository {
	return &Repository{client: client, scope: scope}
}

// EnsureSchema creates the indexes the lookups and merges rely on. Safe to
// call on every start.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// FindEntitiesByType returns the live entities of one type, ordered by key.
func (r *Repository) FindEntitiesByType(ctx context.Context, entityType string) ([]domain.Entity, error) {
	if entityType == "" {
		return nil, errors.New("entity type is required")
	}

	res, err := r.client.ExecuteRead(ctx, findEntitiesCypher, r.scopeParams(map[string]any{
		"type": entityType,
	}))
	if err != nil {
		return nil, fmt.Errorf("find entities of type %s: %w", entityType, err)
	}

	entities := make([]domain.Entity, 0, len(res.Records))
	for _, record := range res.Records {
		entities = append(entities, domain.Entity{
			Key:        toString(record["key"]),
			Type:       entityType,
			Class:      toString(record["class"]),
			Properties: userProperties(record["props"]),
		})
	}
	return entities, nil
}

// FindRelationshipsByType returns the live relationships of one type, ordered by key.
func (r *Repository) FindRelationshipsByType(ctx context.Context, relationshipType string) ([]domain.Relationship, error) {
	if relationshipType == "" {
		return nil, errors.New("relationship type is required")
	}

	res, err := r.client.ExecuteRead(ctx, findRelationshipsCypher, r.scopeParams(map[string]any{
		"type": relationshipType,
	}))
	if err != nil {
		return nil, fmt.Errorf("find relationships of type %s: %w", relationshipType, err)
	}

	relationships := make([]domain.Relationship, 0, len(res.Records))
	for _, record := range res.Records {
		relationships = append(relationships, domain.Relationship{
			Key:        toString(record["key"]),
			Type:       relationshipType,
			Class:      toString(record["class"]),
			FromKey:    toString(record["fromKey"]),
			ToKey:      toString(record["toKey"]),
			Properties: userProperties(record["props"]),
		})
	}
	return relationships, nil
}

// Publish applies every batch inside one write transaction. Entity
// operations of all batches run before any relationship operation so that
// relationship endpoints created in the same publish are visible. A failure
// is returned as a *domain.PublishError and nothing is committed.
func (r *Repository) Publish(ctx context.Context, batches ...domain.OperationBatch) (domain.PublishResult, error) {
	var (
		statements []graph.Statement
		result     domain.PublishResult
	)

	for _, batch := range batches {
		for _, op := range batch.Entities {
			st, err := r.entityStatement(op)
			if err != nil {
				return domain.PublishResult{}, &domain.PublishError{Err: err}
			}
			statements = append(statements, st)
			result = result.Add(count(op.Kind))
		}
	}
	for _, batch := range batches {
		for _, op := range batch.Relationships {
			st, err := r.relationshipStatement(op)
			if err != nil {
				return domain.PublishResult{}, &domain.PublishError{Err: err}
			}
			statements = append(statements, st)
			result = result.Add(count(op.Kind))
		}
	}

	if len(statements) == 0 {
		return result, nil
	}
	if err := r.client.ExecuteWriteTx(ctx, statements); err != nil {
		return domain.PublishResult{}, &domain.PublishError{Err: err}
	}
	return result, nil
}

func (r *Repository) entityStatement(op domain.EntityOperation) (graph.Statement, error) {
	if op.Key == "" {
		return graph.Statement{}, errors.New("entity key is required")
	}
	params := r.scopeParams(map[string]any{
		"key":   op.Key,
		"type":  op.EntityType,
		"class": op.Class,
		"props": storableProperties(op.Properties),
	})

	switch op.Kind {
	case domain.OperationCreate:
		return graph.Statement{Query: createEntityCypher, Params: params}, nil
	case domain.OperationUpdate:
		return graph.Statement{Query: updateEntityCypher, Params: params}, nil
	case domain.OperationDelete:
		return graph.Statement{Query: deleteEntityCypher, Params: params}, nil
	default:
		return graph.Statement{}, fmt.Errorf("entity %s: unknown operation %q", op.Key, op.Kind)
	}
}

func (r *Repository) relationshipStatement(op domain.RelationshipOperation) (graph.Statement, error) {
	if op.Key == "" {
		return graph.Statement{}, errors.New("relationship key is required")
	}
	params := r.scopeParams(map[string]any{
		"key":     op.Key,
		"type":    op.RelationshipType,
		"class":   op.Class,
		"fromKey": op.FromKey,
		"toKey":   op.ToKey,
		"props":   storableProperties(op.Properties),
	})

	switch op.Kind {
	case domain.OperationCreate:
		if op.Mapping != nil {
			return r.mappedRelationshipStatement(op, params)
		}
		return graph.Statement{Query: createRelationshipCypher, Params: params}, nil
	case domain.OperationUpdate:
		return graph.Statement{Query: updateRelationshipCypher, Params: params}, nil
	case domain.OperationDelete:
		return graph.Statement{Query: deleteRelationshipCypher, Params: params}, nil
	default:
		return graph.Statement{}, fmt.Errorf("relationship %s: unknown operation %q", op.Key, op.Kind)
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// mappedRelationshipStatement matches the target on its filter keys, creating
// it when absent, and links it to the source in the mapping direction.
func (r *Repository) mappedRelationshipStatement(op domain.RelationshipOperation, params map[string]any) (graph.Statement, error) {
	mapping := op.Mapping
	if len(mapping.TargetFilterKeys) == 0 {
		return graph.Statement{}, fmt.Errorf("relationship %s: mapping has no target filter keys", op.Key)
	}

	target := mapping.TargetEntity
	filter := make(map[string]any, len(mapping.TargetFilterKeys))
	fields := make([]string, 0, len(mapping.TargetFilterKeys))
	for _, key := range mapping.TargetFilterKeys {
		if !identifierPattern.MatchString(key) {
			return graph.Statement{}, fmt.Errorf("relationship %s: invalid target filter key %q", op.Key, key)
		}
		value, ok := targetValue(target, key)
		if !ok {
			return graph.Statement{}, fmt.Errorf("relationship %s: target has no value for filter key %q", op.Key, key)
		}
		filter[key] = value
		fields = append(fields, fmt.Sprintf("`%s`: $targetFilter.`%s`", key, key))
	}

	params["sourceKey"] = mapping.SourceEntityKey
	params["targetFilter"] = filter
	params["targetKey"] = target.Key
	params["targetType"] = target.Type
	params["targetClass"] = target.Class
	params["targetProps"] = storableProperties(target.Properties)

	edge := "(source)-[rel:RELATES {_key: $key}]->(target)"
	if mapping.Direction == domain.DirectionReverse {
		edge = "(target)-[rel:RELATES {_key: $key}]->(source)"
	}

	query := fmt.Sprintf(mappedRelationshipCypherTemplate, strings.Join(fields, ", "), edge)
	return graph.Statement{Query: query, Params: params}, nil
}

func targetValue(target domain.Entity, key string) (any, bool) {
	switch key {
	case "_key":
		return target.Key, target.Key != ""
	case "_type":
		return target.Type, target.Type != ""
	case "_class":
		return target.Class, target.Class != ""
	}
	v, ok := target.Property(key)
	return v, ok && v != nil
}

func (r *Repository) scopeParams(params map[string]any) map[string]any {
	params["accountId"] = r.scope.AccountID
	params["instanceId"] = r.scope.InstanceID
	return params
}

func count(kind domain.OperationKind) domain.PublishResult {
	switch kind {
	case domain.OperationCreate:
		return domain.PublishResult{Created: 1}
	case domain.OperationUpdate:
		return domain.PublishResult{Updated: 1}
	case domain.OperationDelete:
		return domain.PublishResult{Deleted: 1}
	}
	return domain.PublishResult{}
}

// storableProperties converts values the driver cannot store. A nil value
// stays nil, which removes the property on SET +=.
func storableProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case []string:
			list := make([]any, len(val))
			for i, s := range val {
				list[i] = s
			}
			out[k] = list
		case int:
			out[k] = int64(val)
		default:
			out[k] = v
		}
	}
	return out
}

// userProperties drops the bookkeeping properties prefixed with an underscore.
func userProperties(val any) map[string]any {
	raw, ok := val.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	props := make(map[string]any, len(raw))
	for k, v := range raw {
		if strings.HasPrefix(k, "_") {
			continue
		}
		props[k] = v
	}
	return props
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

var schemaCypher = []string{
	"CREATE INDEX scansync_entity_key IF NOT EXISTS FOR (e:Entity) ON (e._key, e._integrationInstanceId)",
	"CREATE INDEX scansync_entity_type IF NOT EXISTS FOR (e:Entity) ON (e._type, e._accountId, e._integrationInstanceId)",
	"CREATE INDEX scansync_relates_type IF NOT EXISTS FOR ()-[r:RELATES]-() ON (r._type, r._integrationInstanceId)",
}

const findEntitiesCypher = `
MATCH (e:Entity {_type: $type, _accountId: $accountId, _integrationInstanceId: $instanceId})
WHERE coalesce(e._deleted, false) = false
RETURN e._key AS key, e._class AS class, properties(e) AS props
ORDER BY key
`

const findRelationshipsCypher = `
MATCH (from:Entity)-[r:RELATES {_type: $type, _accountId: $accountId, _integrationInstanceId: $instanceId}]->(to:Entity)
WHERE coalesce(r._deleted, false) = false
RETURN r._key AS key, r._class AS class, from._key AS fromKey, to._key AS toKey, properties(r) AS props
ORDER BY key
`

const createEntityCypher = `
MERGE (e:Entity {_key: $key, _accountId: $accountId, _integrationInstanceId: $instanceId})
SET e += $props,
	e._type = $type,
	e._class = $class,
	e._deleted = false
`

const updateEntityCypher = `
MATCH (e:Entity {_key: $key, _accountId: $accountId, _integrationInstanceId: $instanceId})
SET e += $props
`

const deleteEntityCypher = `
MATCH (e:Entity {_key: $key, _accountId: $accountId, _integrationInstanceId: $instanceId})
SET e._deleted = true
`

const createRelationshipCypher = `
MATCH (from:Entity {_key: $fromKey, _accountId: $accountId, _integrationInstanceId: $instanceId})
MATCH (to:Entity {_key: $toKey, _accountId: $accountId, _integrationInstanceId: $instanceId})
MERGE (from)-[r:RELATES {_key: $key}]->(to)
SET r += $props,
	r._type = $type,
	r._class = $class,
	r._accountId = $accountId,
	r._integrationInstanceId = $instanceId,
	r._deleted = false
`

// Mapped targets are shared across instances, so only the filter keys
// identify them. Target properties are written on creation only.
const mappedRelationshipCypherTemplate = `
MATCH (source:Entity {_key: $sourceKey, _accountId: $accountId, _integrationInstanceId: $instanceId})
MERGE (target:Entity {%s})
ON CREATE SET target += $targetProps,
	target._key = $targetKey,
	target._type = $targetType,
	target._class = $targetClass,
	target._deleted = false
MERGE %s
SET rel += $props,
	rel._type = $type,
	rel._class = $class,
	rel._accountId = $accountId,
	rel._integrationInstanceId = $instanceId,
	rel._deleted = false
`

const updateRelationshipCypher = `
MATCH ()-[r:RELATES {_key: $key, _accountId: $accountId, _integrationInstanceId: $instanceId}]->()
SET r += $props
`

const deleteRelationshipCypher = `
MATCH ()-[r:RELATES {_key: $key, _accountId: $accountId, _integrationInstanceId: $instanceId}]->()
SET r._deleted = true
`
