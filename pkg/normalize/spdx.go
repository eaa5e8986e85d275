package normalize

import (
	"encoding/json"
	"strings"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

// documentRef is the synthetic identifier of the SPDX document root.
// The package related to it by a DESCRIBES relationship is the primary.
const documentRef = "SPDXRef-DOCUMENT"

// noAssertion is the SPDX sentinel for "no license determination made".
const noAssertion = "NOASSERTION"

// ---- SPDX 2.x JSON input types ----

type spdxDocument struct {
	SPDXID            string             `json:"SPDXID"`
	Name              string             `json:"name"`
	DocumentDescribes []string           `json:"documentDescribes"`
	Packages          []spdxPackage      `json:"packages"`
	Relationships     []spdxRelationship `json:"relationships"`
}

type spdxPackage struct {
	SPDXID                string            `json:"SPDXID"`
	Name                  string            `json:"name"`
	VersionInfo           string            `json:"versionInfo"`
	LicenseConcluded      string            `json:"licenseConcluded"`
	LicenseDeclared       string            `json:"licenseDeclared"`
	Description           string            `json:"description"`
	PrimaryPackagePurpose string            `json:"primaryPackagePurpose"`
	ExternalRefs          []spdxExternalRef `json:"externalRefs"`
}

type spdxExternalRef struct {
	ReferenceCategory string `json:"referenceCategory"`
	ReferenceType     string `json:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator"`
}

type spdxRelationship struct {
	SpdxElementID      string `json:"spdxElementId"`
	RelatedSpdxElement string `json:"relatedSpdxElement"`
	RelationshipType   string `json:"relationshipType"`
}

// purposeTypes maps SPDX primaryPackagePurpose values to CycloneDX
// component types. Unrecognized purposes default to "library".
var purposeTypes = map[string]string{
	"APPLICATION":      "application",
	"FRAMEWORK":        "framework",
	"LIBRARY":          "library",
	"CONTAINER":        "container",
	"OPERATING-SYSTEM": "operating-system",
	"DEVICE":           "device",
	"FIRMWARE":         "firmware",
	"FILE":             "file",
}

// spdxRelationship direction depends on the relationship type:
// "A DEPENDS_ON B" reads parent→child as written, while the *_OF forms
// ("A DEPENDENCY_OF B") invert it.
var spdxDependencyTypes = map[string]struct {
	normalized sbom.RelationshipType
	inverted   bool
}{
	"DEPENDS_ON":             {sbom.RelFunctional, false},
	"DEPENDENCY_OF":          {sbom.RelFunctional, true},
	"RUNTIME_DEPENDENCY_OF":  {sbom.RelFunctional, true},
	"BUILD_DEPENDENCY_OF":    {sbom.RelBuild, true},
	"BUILD_TOOL_OF":          {sbom.RelBuild, true},
	"DEV_DEPENDENCY_OF":      {sbom.RelDev, true},
	"DEV_TOOL_OF":            {sbom.RelDev, true},
	"OPTIONAL_DEPENDENCY_OF": {sbom.RelOptional, true},
	"OPTIONAL_COMPONENT_OF":  {sbom.RelOptional, true},
}

// normalizeSPDX converts an SPDX manifest document into canonical
// package and dependency records.
func normalizeSPDX(data []byte, source string) ([]sbom.Package, []sbom.Dependency, error) {
	var doc spdxDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.WrapParse(string(FormatSPDX), source, err)
	}
	if doc.Packages == nil {
		return nil, nil, errors.NewValidationError("packages", nil, "SPDX document has no packages array")
	}

	primaryRef, err := spdxPrimaryRef(&doc)
	if err != nil {
		return nil, nil, err
	}

	packages := make([]sbom.Package, 0, len(doc.Packages))
	kept := make(map[string]bool, len(doc.Packages))
	for _, sp := range doc.Packages {
		name := strings.TrimSpace(sp.Name)
		if name == "" {
			// Cannot be a dependency endpoint either; edges touching
			// this record fall out below.
			continue
		}

		p := sbom.Package{
			Name:        name,
			Version:     strings.TrimSpace(sp.VersionInfo),
			Licenses:    spdxLicenses(sp),
			Type:        spdxComponentType(sp.PrimaryPackagePurpose),
			Description: sp.Description,
			Source:      source,
			LocalRef:    sp.SPDXID,
			Primary:     sp.SPDXID == primaryRef && primaryRef != "",
		}
		for _, ref := range sp.ExternalRefs {
			switch ref.ReferenceType {
			case "purl":
				if p.PURL == "" {
					p.PURL = strings.TrimSpace(ref.ReferenceLocator)
				}
			case "cpe22Type", "cpe23Type":
				if p.CPE == "" {
					p.CPE = strings.TrimSpace(ref.ReferenceLocator)
				}
			}
		}
		checkPURL(p.PURL, p.Name, source)

		packages = append(packages, p)
		kept[sp.SPDXID] = true
	}

	if primaryRef != "" && !kept[primaryRef] {
		return nil, nil, errors.NewValidationError("documentDescribes", primaryRef,
			"primary reference does not resolve to a package in the document")
	}

	dependencies := spdxDependencies(&doc, kept, source)
	return packages, dependencies, nil
}

// spdxPrimaryRef locates the primary package reference: the element a
// DESCRIBES relationship (or the documentDescribes list) attaches to
// the synthetic document root.
func spdxPrimaryRef(doc *spdxDocument) (string, error) {
	for _, rel := range doc.Relationships {
		if rel.RelationshipType == "DESCRIBES" && rel.SpdxElementID == documentRef {
			if rel.RelatedSpdxElement == "" {
				return "", errors.NewValidationError("relationships", rel,
					"DESCRIBES relationship has no related element")
			}
			return rel.RelatedSpdxElement, nil
		}
		// DESCRIBED_BY is the same statement with the sides swapped.
		if rel.RelationshipType == "DESCRIBED_BY" && rel.RelatedSpdxElement == documentRef {
			return rel.SpdxElementID, nil
		}
	}
	if len(doc.DocumentDescribes) > 0 {
		return doc.DocumentDescribes[0], nil
	}
	return "", nil
}

// spdxDependencies derives edges from dependency-denoting relationships.
// Edges with an unrecognized relationship type, or touching an element
// that is not a kept package, are dropped here rather than merged.
func spdxDependencies(doc *spdxDocument, kept map[string]bool, source string) []sbom.Dependency {
	dependencies := make([]sbom.Dependency, 0, len(doc.Relationships))
	dropped := 0
	for _, rel := range doc.Relationships {
		mapping, ok := spdxDependencyTypes[rel.RelationshipType]
		if !ok {
			continue
		}

		parent, child := rel.SpdxElementID, rel.RelatedSpdxElement
		if mapping.inverted {
			parent, child = child, parent
		}
		if !kept[parent] || !kept[child] {
			dropped++
			continue
		}

		dependencies = append(dependencies, sbom.Dependency{
			Source:       source,
			ParentRef:    parent,
			ChildRef:     child,
			OriginalType: rel.RelationshipType,
			Type:         mapping.normalized,
		})
	}
	if dropped > 0 {
		logging.Debug().
			Str("source", source).
			Int("dropped", dropped).
			Msg("Dropped dependency relationships with non-package endpoints")
	}
	return dependencies
}

// spdxLicenses collects concluded then declared license identifiers,
// skipping the NOASSERTION/NONE sentinels and deduplicating.
func spdxLicenses(sp spdxPackage) []string {
	var ids []string
	for _, lic := range []string{sp.LicenseConcluded, sp.LicenseDeclared} {
		lic = strings.TrimSpace(lic)
		if lic == "" || lic == noAssertion || lic == "NONE" {
			continue
		}
		ids = append(ids, lic)
	}
	return dedupeLicenses(ids)
}

// spdxComponentType maps a primaryPackagePurpose to a component type.
func spdxComponentType(purpose string) string {
	if t, ok := purposeTypes[strings.ToUpper(strings.TrimSpace(purpose))]; ok {
		return t
	}
	return sbom.ComponentTypeLibrary
}
