package domain

// OperationKind enumerates graph mutations.
type OperationKind string

const (
	OperationCreate OperationKind = "CREATE"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// EntityOperation is one entity mutation. For updates Properties holds only
// the changed properties; for creates it holds the full payload.
type EntityOperation struct {
	Kind       OperationKind
	EntityType string
	Class      string
	Key        string
	Properties map[string]any
}

// RelationshipOperation is one relationship mutation.
type RelationshipOperation struct {
	Kind             OperationKind
	RelationshipType string
	Class            string
	Key              string
	FromKey          string
	ToKey            string
	Properties       map[string]any
	Mapping          *RelationshipMapping
}

// OperationBatch groups entity and relationship operations that are
// published together.
type OperationBatch struct {
	Entities      []EntityOperation
	Relationships []RelationshipOperation
}

// Len returns the number of operations in the batch.
func (b OperationBatch) Len() int {
	return len(b.Entities) + len(b.Relationships)
}

// Merge appends the operations of other, preserving order.
func (b OperationBatch) Merge(other OperationBatch) OperationBatch {
	return OperationBatch{
		Entities:      append(append([]EntityOperation(nil), b.Entities...), other.Entities...),
		Relationships: append(append([]RelationshipOperation(nil), b.Relationships...), other.Relationships...),
	}
}

// PublishResult reports what a publish applied.
type PublishResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Add sums two results.
func (r PublishResult) Add(other PublishResult) PublishResult {
	return PublishResult{
		Created: r.Created + other.Created,
		Updated: r.Updated + other.Updated,
		Deleted: r.Deleted + other.Deleted,
	}
}
