package domain

// DefaultEdgeType is the edge type used when none is given.
const DefaultEdgeType = "default"

// Edge is a directed relation between two nodes of the same topic.
//
// The (Source, Target) pair is the natural key. ID is the surrogate the
// backend echoes on creation; it is empty when the backend does not send one.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"from"`
	Target string `json:"to"`
	Type   string `json:"type,omitempty"`
	Label  string `json:"label"`
}

// Key identifies the edge locally: the surrogate id when known, the ordered
// pair otherwise.
func (e Edge) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return PairKey(e.Source, e.Target)
}

// Matches reports whether the edge joins source to target, in that order.
func (e Edge) Matches(source, target string) bool {
	return e.Source == source && e.Target == target
}

// Touches reports whether nodeID is either endpoint of the edge.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// PairKey renders an ordered endpoint pair.
func PairKey(source, target string) string {
	return source + "->" + target
}

// EdgeSpec is the creation request for an edge.
type EdgeSpec struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	EdgeType string `json:"edge_type"`
	Label    string `json:"label"`
}

// Graph is the full node/edge set of one topic.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
