package domain

// DefaultNodeType is the node type tag sent when creating a node.
const DefaultNodeType = "knowledge"

// Node is a knowledge unit within a topic's graph.
type Node struct {
	ID      string   `json:"id"`
	Title   string   `json:"label"`
	Type    string   `json:"type,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Clone returns a copy that shares no slices with n.
func (n Node) Clone() Node {
	c := n
	c.Tags = cloneStrings(n.Tags)
	return c
}

// NodeFields is the full editable field set of a node.
type NodeFields struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Apply overwrites the editable fields of n with f.
func (n *Node) Apply(f NodeFields) {
	n.Title = f.Title
	n.Content = f.Content
	n.Tags = cloneStrings(f.Tags)
}

// cloneStrings copies s, keeping nil and empty distinct.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
