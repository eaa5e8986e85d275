package normalize

import (
	"encoding/json"
	"strings"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

// ---- CycloneDX JSON input types ----

type cdxDocument struct {
	BOMFormat    string          `json:"bomFormat"`
	SpecVersion  string          `json:"specVersion"`
	Metadata     *cdxMetadata    `json:"metadata"`
	Components   []cdxComponent  `json:"components"`
	Dependencies []cdxDependency `json:"dependencies"`
}

type cdxMetadata struct {
	Component *cdxComponent `json:"component"`
}

type cdxComponent struct {
	BOMRef             string                 `json:"bom-ref"`
	Type               string                 `json:"type"`
	Name               string                 `json:"name"`
	Version            string                 `json:"version"`
	PURL               string                 `json:"purl"`
	CPE                string                 `json:"cpe"`
	Description        string                 `json:"description"`
	Licenses           []cdxLicenseChoice     `json:"licenses"`
	ExternalReferences []cdxExternalReference `json:"externalReferences"`
}

type cdxLicenseChoice struct {
	License    *cdxLicense `json:"license"`
	Expression string      `json:"expression"`
}

type cdxLicense struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cdxExternalReference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type cdxDependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn"`
}

// normalizeCycloneDX converts a CycloneDX catalog document into
// canonical package and dependency records. Every dependency entry is
// expanded into one edge per child with the relationship type fixed to
// functional; CycloneDX carries no finer-grained relation.
func normalizeCycloneDX(data []byte, source string) ([]sbom.Package, []sbom.Dependency, error) {
	var doc cdxDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.WrapParse(string(FormatCycloneDX), source, err)
	}
	if doc.Components == nil {
		return nil, nil, errors.NewValidationError("components", nil, "CycloneDX document has no components array")
	}

	primaryRef := ""
	if doc.Metadata != nil && doc.Metadata.Component != nil {
		primaryRef = cdxLocalRef(*doc.Metadata.Component)
	}

	packages := make([]sbom.Package, 0, len(doc.Components))
	kept := make(map[string]bool, len(doc.Components))
	primarySeen := false
	for _, c := range doc.Components {
		p, ok := cdxPackage(c, source)
		if !ok {
			continue
		}
		if primaryRef != "" && p.LocalRef == primaryRef {
			p.Primary = true
			primarySeen = true
		}
		packages = append(packages, p)
		kept[p.LocalRef] = true
	}

	// The declared root component is not always repeated in the
	// components array; carry it in as its own record so the primary
	// survives normalization.
	if primaryRef != "" && !primarySeen {
		if p, ok := cdxPackage(*doc.Metadata.Component, source); ok {
			p.Primary = true
			packages = append(packages, p)
			kept[p.LocalRef] = true
		}
	}

	dependencies := make([]sbom.Dependency, 0, len(doc.Dependencies))
	for _, dep := range doc.Dependencies {
		if !kept[dep.Ref] {
			continue
		}
		for _, child := range dep.DependsOn {
			if !kept[child] {
				continue
			}
			dependencies = append(dependencies, sbom.Dependency{
				Source:       source,
				ParentRef:    dep.Ref,
				ChildRef:     child,
				OriginalType: "dependsOn",
				Type:         sbom.RelFunctional,
			})
		}
	}

	return packages, dependencies, nil
}

// cdxPackage converts one CycloneDX component into a canonical record.
// Returns false for components whose name is empty after trimming.
func cdxPackage(c cdxComponent, source string) (sbom.Package, bool) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return sbom.Package{}, false
	}

	p := sbom.Package{
		Name:        name,
		Version:     strings.TrimSpace(c.Version),
		PURL:        strings.TrimSpace(c.PURL),
		CPE:         strings.TrimSpace(c.CPE),
		Licenses:    cdxLicenses(c.Licenses),
		Type:        c.Type,
		Description: c.Description,
		Source:      source,
	}
	if p.Type == "" {
		p.Type = sbom.ComponentTypeLibrary
	}
	if p.CPE == "" {
		for _, ref := range c.ExternalReferences {
			if ref.Type == "cpe22Type" || ref.Type == "cpe23Type" {
				p.CPE = strings.TrimSpace(ref.URL)
				break
			}
		}
	}
	p.LocalRef = cdxLocalRef(c)
	checkPURL(p.PURL, p.Name, source)
	return p, true
}

// cdxLocalRef returns the identifier dependency edges use for a
// component: its bom-ref, falling back to purl, then name@version.
func cdxLocalRef(c cdxComponent) string {
	if ref := strings.TrimSpace(c.BOMRef); ref != "" {
		return ref
	}
	if p := strings.TrimSpace(c.PURL); p != "" {
		return p
	}
	return strings.TrimSpace(c.Name) + "@" + strings.TrimSpace(c.Version)
}

// cdxLicenses flattens license choices into identifier strings.
func cdxLicenses(choices []cdxLicenseChoice) []string {
	var ids []string
	for _, choice := range choices {
		switch {
		case choice.License != nil && choice.License.ID != "":
			ids = append(ids, choice.License.ID)
		case choice.License != nil && choice.License.Name != "":
			ids = append(ids, choice.License.Name)
		case choice.Expression != "":
			ids = append(ids, choice.Expression)
		}
	}
	return dedupeLicenses(ids)
}
