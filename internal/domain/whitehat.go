package domain

// AccountEntity represents the integration account. Its key is the
// integration instance id and never changes.
type AccountEntity struct {
	Key  string
	Name string
}

func (a AccountEntity) ToEntity() Entity {
	return Entity{
		Key:   a.Key,
		Type:  AccountEntityType,
		Class: "Account",
		Properties: map[string]any{
			"name":        a.Name,
			"displayName": a.Name,
		},
	}
}

// ServiceEntity is one entry of the static scan catalog.
type ServiceEntity struct {
	Key         string
	ScanType    string
	Name        string
	DisplayName string
	Category    string
}

func (s ServiceEntity) ToEntity() Entity {
	return Entity{
		Key:   s.Key,
		Type:  ServiceEntityType,
		Class: "Service",
		Properties: map[string]any{
			"name":        s.Name,
			"displayName": s.DisplayName,
			"category":    s.Category,
			"scanType":    s.ScanType,
		},
	}
}

// Scan types of the service catalog.
const (
	ScanTypeStatic  = "STATIC"
	ScanTypeDynamic = "DYNAMIC"
)

// DefaultServices returns the fixed service catalog keyed by scan type.
// A fresh map is returned on every call.
func DefaultServices() map[string]ServiceEntity {
	return map[string]ServiceEntity{
		ScanTypeStatic: {
			Key:         "whitehat-scan-static",
			ScanType:    ScanTypeStatic,
			Name:        "Static Application Security Testing",
			DisplayName: "WhiteHat Sentinel Source",
			Category:    "software",
		},
		ScanTypeDynamic: {
			Key:         "whitehat-scan-dynamic",
			ScanType:    ScanTypeDynamic,
			Name:        "Dynamic Application Security Testing",
			DisplayName: "WhiteHat Sentinel Dynamic",
			Category:    "software",
		},
	}
}

// VulnerabilityEntity is the normalized defect class shared by all findings
// of that class.
type VulnerabilityEntity struct {
	Key         string
	Class       string
	Name        string
	DisplayName string
	Category    string
	ScanType    string
	// CreatedOn is epoch milliseconds and may only move earlier.
	CreatedOn int64
}

func (v VulnerabilityEntity) ToEntity() Entity {
	return Entity{
		Key:   v.Key,
		Type:  VulnerabilityEntityType,
		Class: "Vulnerability",
		Properties: map[string]any{
			"id":          v.Class,
			"name":        v.Name,
			"displayName": v.DisplayName,
			"category":    v.Category,
			"scanType":    v.ScanType,
			"createdOn":   v.CreatedOn,
		},
	}
}

// FindingEntity mirrors one raw provider record.
type FindingEntity struct {
	Key           string
	ProviderID    int64
	Name          string
	DisplayName   string
	ApplicationID string
	Targets       string
	Open          bool
	Status        string
	CVSS          string
	CVSSVector    string
	Likelihood    int64
	Impact        int64
	Risk          string
	Location      string
	CreatedOn     int64
	FoundDate     int64
	OpenedDate    *int64
	ModifiedDate  *int64
	ResolvedDate  *int64
}

func (f FindingEntity) ToEntity() Entity {
	return Entity{
		Key:   f.Key,
		Type:  FindingEntityType,
		Class: "Finding",
		Properties: map[string]any{
			"id":            f.ProviderID,
			"name":          f.Name,
			"displayName":   f.DisplayName,
			"applicationId": f.ApplicationID,
			"targets":       f.Targets,
			"open":          f.Open,
			"status":        f.Status,
			"cvss":          f.CVSS,
			"cvssVector":    f.CVSSVector,
			"likelihood":    f.Likelihood,
			"impact":        f.Impact,
			"risk":          f.Risk,
			"location":      f.Location,
			"createdOn":     f.CreatedOn,
			"foundDate":     f.FoundDate,
			"openedDate":    millisOrNil(f.OpenedDate),
			"modifiedDate":  millisOrNil(f.ModifiedDate),
			"resolvedDate":  millisOrNil(f.ResolvedDate),
		},
	}
}

// CVEEntity is an external vulnerability reference.
type CVEEntity struct {
	Key       string
	Name      string
	WebLink   string
	Reference []string
}

func (c CVEEntity) ToEntity() Entity {
	refs := make([]string, len(c.Reference))
	copy(refs, c.Reference)
	return Entity{
		Key:   c.Key,
		Type:  CVEEntityType,
		Class: "Vulnerability",
		Properties: map[string]any{
			"name":        c.Name,
			"displayName": c.Name,
			"webLink":     c.WebLink,
			"references":  refs,
		},
	}
}

// millisOrNil keeps an absent timestamp as an untyped nil so that it is
// persisted as null rather than as epoch 0.
func millisOrNil(ms *int64) any {
	if ms == nil {
		return nil
	}
	return *ms
}
