package sbom

// ---- CycloneDX JSON output document types ----
//
// The canonical merged document mirrors the CycloneDX component-catalog
// shape consumed by downstream tooling. Field order and omitempty tags
// match what scanners and viewers expect.

// BOMFormat is the format tag carried by every canonical document.
const BOMFormat = "CycloneDX"

// SpecVersion is the CycloneDX specification version emitted.
const SpecVersion = "1.4"

// Document is the canonical merged SBOM. Built fresh per merge
// invocation and never mutated in place; a re-merge with different
// policy flags produces an independent document.
type Document struct {
	BOMFormat    string               `json:"bomFormat"`
	SpecVersion  string               `json:"specVersion"`
	Version      int                  `json:"version"`
	SerialNumber string               `json:"serialNumber,omitempty"`
	Metadata     Metadata             `json:"metadata"`
	Components   []Component          `json:"components"`
	Dependencies []DocumentDependency `json:"dependencies"`
}

// Metadata carries document provenance: timestamp, producing tool,
// the restored primary component, and key-value properties describing
// counts and the applied merge policy.
type Metadata struct {
	Timestamp  string     `json:"timestamp"`
	Tools      []Tool     `json:"tools"`
	Component  *Component `json:"component,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

// Tool identifies the producer of the document.
type Tool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Component is one selected package in the canonical document.
type Component struct {
	BOMRef      string          `json:"bom-ref"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	PURL        string          `json:"purl,omitempty"`
	CPE         string          `json:"cpe,omitempty"`
	Description string          `json:"description,omitempty"`
	Licenses    []LicenseChoice `json:"licenses,omitempty"`
	Properties  []Property      `json:"properties,omitempty"`
}

// LicenseChoice wraps a single license entry.
type LicenseChoice struct {
	License License `json:"license"`
}

// License is either a recognized SPDX identifier (ID) or free text
// (Name) when the identifier is not in the known set.
type License struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Property is a CycloneDX name/value provenance property.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DocumentDependency is one consolidated edge set: a parent bom-ref and
// its deduplicated children. Every ref resolves to a component in the
// same document.
type DocumentDependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn"`
}
