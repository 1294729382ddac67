package domain

// Entity type tags.
const (
	AccountEntityType       = "whitehat_account"
	ServiceEntityType       = "whitehat_scan"
	CVEEntityType           = "cve"
	VulnerabilityEntityType = "whitehat_vulnerability"
	FindingEntityType       = "whitehat_finding"
)

// Relationship type tags.
const (
	AccountServiceRelationshipType       = "whitehat_account_has_service"
	ServiceVulnerabilityRelationshipType = "whitehat_scan_identified_vulnerability"
	VulnerabilityCVERelationshipType     = "whitehat_vulnerability_exploits_cwe"
	VulnerabilityFindingRelationshipType = "whitehat_finding_is_vulnerability"
)

// Entity is the generic graph shape every domain entity reduces to before
// being diffed or persisted.
type Entity struct {
	Key        string
	Type       string
	Class      string
	Properties map[string]any
}

// Property returns the named property and whether it was present.
func (e Entity) Property(name string) (any, bool) {
	if e.Properties == nil {
		return nil, false
	}
	v, ok := e.Properties[name]
	return v, ok
}

// Direction describes how a mapped relationship points at its target.
type Direction string

const (
	DirectionForward Direction = "FORWARD"
	DirectionReverse Direction = "REVERSE"
)

// RelationshipMapping asks the graph layer to match (or create) the target
// entity instead of referencing an already resolved to-key.
type RelationshipMapping struct {
	Direction        Direction
	SourceEntityKey  string
	TargetEntity     Entity
	TargetFilterKeys []string
}

// Relationship is the generic graph shape of an edge.
type Relationship struct {
	Key        string
	Type       string
	Class      string
	FromKey    string
	ToKey      string
	Properties map[string]any
	Mapping    *RelationshipMapping
}
