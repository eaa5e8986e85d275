package sbom

// Graph is a flat node/edge view of a canonical document, shaped for
// visualization frontends.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Meta  GraphMeta   `json:"metadata"`
}

// GraphNode is one component node keyed by its bom-ref.
type GraphNode struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Properties map[string]string `json:"properties,omitempty"`
}

// GraphEdge is one resolved depends-on edge.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphMeta summarizes the extracted graph.
type GraphMeta struct {
	TotalNodes  int    `json:"total_nodes"`
	TotalEdges  int    `json:"total_edges"`
	SpecVersion string `json:"sbom_version"`
	Format      string `json:"sbom_format"`
}

// ExtractGraph flattens a canonical document into nodes and edges.
// Edges whose endpoints are not present as components are skipped, so
// the result never contains dangling references.
func ExtractGraph(doc *Document) *Graph {
	g := &Graph{
		Nodes: make([]GraphNode, 0, len(doc.Components)),
		Edges: make([]GraphEdge, 0, len(doc.Dependencies)),
	}

	known := make(map[string]bool, len(doc.Components))
	for _, c := range doc.Components {
		props := map[string]string{
			"name":    c.Name,
			"version": c.Version,
			"type":    c.Type,
		}
		if c.PURL != "" {
			props["purl"] = c.PURL
		}
		if c.Description != "" {
			props["description"] = c.Description
		}
		g.Nodes = append(g.Nodes, GraphNode{
			ID:         c.BOMRef,
			Label:      c.Name,
			Properties: props,
		})
		known[c.BOMRef] = true
	}

	for _, dep := range doc.Dependencies {
		if !known[dep.Ref] {
			continue
		}
		for _, target := range dep.DependsOn {
			if !known[target] {
				continue
			}
			g.Edges = append(g.Edges, GraphEdge{
				Source: dep.Ref,
				Target: target,
				Type:   "depends_on",
			})
		}
	}

	g.Meta = GraphMeta{
		TotalNodes:  len(g.Nodes),
		TotalEdges:  len(g.Edges),
		SpecVersion: doc.SpecVersion,
		Format:      doc.BOMFormat,
	}
	return g
}
