package domain

// Flow is a validated graph of nodes. It is immutable once loaded: the engine
// only ever reads it.
type Flow struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	StartNodeID string           `json:"startNode" yaml:"startNode"`
	Nodes       map[string]*Node `json:"nodes" yaml:"nodes"`

	// TemplateID is display metadata kept alongside the flow by the library.
	TemplateID string `json:"templateId,omitempty" yaml:"templateId,omitempty"`
}

// Node returns the node with the given id, or nil.
func (f *Flow) Node(id string) *Node {
	if f == nil || id == "" {
		return nil
	}
	return f.Nodes[id]
}

// Start returns the start node, or nil when it is missing.
func (f *Flow) Start() *Node {
	if f == nil {
		return nil
	}
	return f.Node(f.StartNodeID)
}
