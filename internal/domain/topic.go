// Package domain holds the data model the client keeps in memory: topics,
// the node/edge graph of the active topic, and per-node chat transcripts.
//
// JSON tags follow the backend wire format, so the same structs are decoded
// from responses and handed to the renderer without a mapping layer.
package domain

// RAGConfig is the retrieval configuration of a topic.
type RAGConfig struct {
	// UseRAG is a pointer because an absent flag means "enabled" as long as
	// the configuration block itself is present.
	UseRAG          *bool  `json:"use_rag,omitempty"`
	ToolName        string `json:"tool_name,omitempty"`
	ToolDescription string `json:"tool_description,omitempty"`
}

// Topic is an independently scoped knowledge graph plus chat persona plus
// optional retrieval configuration.
type Topic struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Personality string     `json:"personality,omitempty"`
	DocPaths    []string   `json:"doc_paths"`
	RAGConfig   *RAGConfig `json:"rag_config,omitempty"`
	RootNodeID  *string    `json:"root_node_id,omitempty"`
}

// UsesRetrieval reports whether retrieval is switched on for the topic.
func (t Topic) UsesRetrieval() bool {
	if t.RAGConfig == nil {
		return false
	}
	return t.RAGConfig.UseRAG == nil || *t.RAGConfig.UseRAG
}

// Clone returns a copy that shares no slices with t.
func (t Topic) Clone() Topic {
	c := t
	c.DocPaths = cloneStrings(t.DocPaths)
	if t.RAGConfig != nil {
		rc := *t.RAGConfig
		if rc.UseRAG != nil {
			v := *rc.UseRAG
			rc.UseRAG = &v
		}
		c.RAGConfig = &rc
	}
	return c
}

// TopicFields are the user-editable metadata of a topic.
type TopicFields struct {
	Name            string
	Personality     string
	UseRAG          bool
	ToolName        string
	ToolDescription string
}

// Fields returns the topic's editable metadata.
func (t Topic) Fields() TopicFields {
	f := TopicFields{
		Name:        t.Name,
		Personality: t.Personality,
		UseRAG:      t.UsesRetrieval(),
	}
	if t.RAGConfig != nil {
		f.ToolName = t.RAGConfig.ToolName
		f.ToolDescription = t.RAGConfig.ToolDescription
	}
	return f
}

// TopicPatch changes some of a topic's fields. Nil fields are left as they
// are.
type TopicPatch struct {
	Name            *string
	Personality     *string
	UseRAG          *bool
	ToolName        *string
	ToolDescription *string
}

// Apply returns base with the set fields of p written over it.
func (p TopicPatch) Apply(base TopicFields) TopicFields {
	if p.Name != nil {
		base.Name = *p.Name
	}
	if p.Personality != nil {
		base.Personality = *p.Personality
	}
	if p.UseRAG != nil {
		base.UseRAG = *p.UseRAG
	}
	if p.ToolName != nil {
		base.ToolName = *p.ToolName
	}
	if p.ToolDescription != nil {
		base.ToolDescription = *p.ToolDescription
	}
	return base
}

// TopicUpdate is the payload of a topic update: the edited fields plus the
// existing document paths that survive the edit.
type TopicUpdate struct {
	TopicFields
	ExistingDocPaths []string
}

// TopicView is a topic as presented in a list. Active is derived on every
// call from the registry's active id and never stored.
type TopicView struct {
	Topic
	Active bool
}
