package dto

// FlowDocument is the on-disk shape of a flow as authored in the panel or in
// exported libraries. It uses "mapstructure" tags so that JSON and YAML sources
// decode through the same path.
type FlowDocument struct {
	ID         string                  `json:"id" mapstructure:"id"`
	Name       string                  `json:"name" mapstructure:"name"`
	StartNode  string                  `json:"startNode" mapstructure:"startNode"`
	TemplateID string                  `json:"templateId" mapstructure:"templateId"`
	Nodes      map[string]NodeDocument `json:"nodes" mapstructure:"nodes"`
}

// NodeDocument is a loosely typed node: any combination of next, nextMap and
// options may be present. The compiler decides which one wins.
type NodeDocument struct {
	ID          string            `json:"id" mapstructure:"id"`
	Type        string            `json:"type" mapstructure:"type"`
	Message     string            `json:"message" mapstructure:"message"`
	Text        string            `json:"text" mapstructure:"text"`
	Next        string            `json:"next" mapstructure:"next"`
	NextMap     map[string]string `json:"nextMap" mapstructure:"nextMap"`
	Options     []OptionDocument  `json:"options" mapstructure:"options"`
	ExpectReply bool              `json:"expectReply" mapstructure:"expectReply"`
}

type OptionDocument struct {
	Label      string `json:"label" mapstructure:"label"`
	Next       string `json:"next" mapstructure:"next"`
	TemplateID string `json:"templateId" mapstructure:"templateId"`
}
