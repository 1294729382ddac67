package domain

import "strings"

// relationshipKey joins endpoint keys around a lowercase verb.
func relationshipKey(from, class, to string) string {
	return from + "|" + strings.ToLower(class) + "|" + to
}

// NewAccountServiceRelationship links the account to a scan service.
func NewAccountServiceRelationship(account AccountEntity, service ServiceEntity) Relationship {
	return Relationship{
		Key:     relationshipKey(account.Key, "HAS", service.Key),
		Type:    AccountServiceRelationshipType,
		Class:   "HAS",
		FromKey: account.Key,
		ToKey:   service.Key,
	}
}

// NewServiceVulnerabilityRelationship links a scan service to a vulnerability it identified.
func NewServiceVulnerabilityRelationship(service ServiceEntity, vuln VulnerabilityEntity) Relationship {
	return Relationship{
		Key:     relationshipKey(service.Key, "IDENTIFIED", vuln.Key),
		Type:    ServiceVulnerabilityRelationshipType,
		Class:   "IDENTIFIED",
		FromKey: service.Key,
		ToKey:   vuln.Key,
	}
}

// NewVulnerabilityCVERelationship links a vulnerability to a CVE through a
// mapping directive; the CVE is matched on its key by the graph layer.
func NewVulnerabilityCVERelationship(vuln VulnerabilityEntity, cve CVEEntity) Relationship {
	return Relationship{
		Key:     relationshipKey(vuln.Key, "EXPLOITS", cve.Key),
		Type:    VulnerabilityCVERelationshipType,
		Class:   "EXPLOITS",
		FromKey: vuln.Key,
		ToKey:   cve.Key,
		Properties: map[string]any{
			"displayName": "EXPLOITS",
		},
		Mapping: &RelationshipMapping{
			Direction:        DirectionForward,
			SourceEntityKey:  vuln.Key,
			TargetEntity:     cve.ToEntity(),
			TargetFilterKeys: []string{"_key"},
		},
	}
}

// NewVulnerabilityFindingRelationship links a finding to its vulnerability class.
func NewVulnerabilityFindingRelationship(vuln VulnerabilityEntity, finding FindingEntity) Relationship {
	return Relationship{
		Key:     relationshipKey(finding.Key, "IS", vuln.Key),
		Type:    VulnerabilityFindingRelationshipType,
		Class:   "IS",
		FromKey: finding.Key,
		ToKey:   vuln.Key,
	}
}
