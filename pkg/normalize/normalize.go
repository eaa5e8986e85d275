// Package normalize converts raw SBOM source documents into the
// canonical package and dependency record model. Two input formats are
// supported as explicit tagged variants: SPDX 2.x JSON (manifest style)
// and CycloneDX JSON (catalog style). Normalization is a pure transform:
// callers persist the results.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/git-pkgs/purl"

	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

// Format tags the schema family of a raw source document.
type Format string

const (
	// FormatSPDX is the SPDX 2.x JSON manifest format.
	FormatSPDX Format = "spdx"
	// FormatCycloneDX is the CycloneDX JSON catalog format.
	FormatCycloneDX Format = "cyclonedx"
)

// Detect sniffs the schema family of a raw JSON document by its
// distinguishing top-level fields.
func Detect(data []byte) (Format, error) {
	var probe struct {
		BOMFormat   string `json:"bomFormat"`
		SPDXVersion string `json:"spdxVersion"`
		SPDXID      string `json:"SPDXID"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", errors.WrapParse("json", "", err)
	}
	switch {
	case probe.BOMFormat != "":
		return FormatCycloneDX, nil
	case probe.SPDXVersion != "" || probe.SPDXID != "":
		return FormatSPDX, nil
	default:
		return "", errors.NewValidationError("format", nil, "document is neither SPDX nor CycloneDX")
	}
}

// Normalize converts one raw source document into canonical package and
// dependency records, tagged with the contributing source name. The
// returned packages all have non-empty names; edges whose endpoints were
// discarded or whose relationship type is unrecognized are dropped.
func Normalize(data []byte, format Format, source string) ([]sbom.Package, []sbom.Dependency, error) {
	switch format {
	case FormatSPDX:
		return normalizeSPDX(data, source)
	case FormatCycloneDX:
		return normalizeCycloneDX(data, source)
	default:
		return nil, nil, errors.NewValidationError("format", string(format), "unsupported source format")
	}
}

// ValidPURL reports whether s is a syntactically valid package-url.
// Only syntax is checked; no registry lookup is performed.
func ValidPURL(s string) bool {
	if !strings.HasPrefix(s, "pkg:") {
		return false
	}
	_, err := purl.Parse(s)
	return err == nil
}

// checkPURL logs a warning for malformed package-urls. The value is
// kept on the record: even a malformed purl is a useful identity hint
// and the merge engine falls back to name@version for the bom-ref.
func checkPURL(p, name, source string) {
	if p == "" || ValidPURL(p) {
		return
	}
	logging.Warn().
		Str("source", source).
		Str("package", name).
		Str("purl", p).
		Msg("Package carries a malformed purl")
}

// dedupeLicenses removes duplicates while preserving first-seen order.
func dedupeLicenses(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
