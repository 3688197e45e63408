// Package compiler turns authored flow documents into domain flows with an
// explicit transition policy per node.
package compiler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jnickzlim/wa-chrome-assistance/internal/dto"
	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw bytes into flows.
type Parser struct {
	logger *slog.Logger
}

type Option func(*Parser)

// WithLogger sets the logger used to report discarded node fields.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a new parser instance.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse accepts JSON or YAML and returns the flows it contains. The input may
// be a single flow, a list of flows, or a document with a "flows" key (the
// export format).
func (p *Parser) Parse(data []byte) ([]*domain.Flow, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse flows: %w", err)
	}
	return p.Decode(generic)
}

// Decode compiles an already decoded generic value (see Parse).
func (p *Parser) Decode(generic any) ([]*domain.Flow, error) {
	var docs []dto.FlowDocument

	switch v := generic.(type) {
	case nil:
		return nil, nil
	case []any:
		if err := decode(v, &docs); err != nil {
			return nil, err
		}
	case map[string]any:
		if flows, ok := v["flows"]; ok {
			if err := decode(flows, &docs); err != nil {
				return nil, err
			}
			break
		}
		var doc dto.FlowDocument
		if err := decode(v, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	default:
		return nil, fmt.Errorf("failed to parse flows: unexpected document of type %T", generic)
	}

	flows := make([]*domain.Flow, 0, len(docs))
	for _, doc := range docs {
		flows = append(flows, p.Compile(doc))
	}
	return flows, nil
}

// Compile resolves the policy of every node of a document. It never fails:
// structural problems are the validator's job.
func (p *Parser) Compile(doc dto.FlowDocument) *domain.Flow {
	flow := &domain.Flow{
		ID:          doc.ID,
		Name:        doc.Name,
		StartNodeID: doc.StartNode,
		TemplateID:  doc.TemplateID,
		Nodes:       make(map[string]*domain.Node, len(doc.Nodes)),
	}

	for id, raw := range doc.Nodes {
		flow.Nodes[id] = p.compileNode(doc.ID, id, raw)
	}
	return flow
}

func (p *Parser) compileNode(flowID, id string, raw dto.NodeDocument) *domain.Node {
	node := &domain.Node{
		ID:          id,
		Message:     raw.Message,
		Prompt:      raw.Text,
		ExpectReply: raw.ExpectReply,
	}

	switch {
	case len(raw.Options) > 0:
		node.Policy = domain.PolicyOptions
		node.Options = make([]domain.Option, len(raw.Options))
		for i, o := range raw.Options {
			node.Options[i] = domain.Option(o)
		}
		if len(raw.NextMap) > 0 || raw.Next != "" {
			p.logger.Warn("Node has options, ignoring automatic transitions",
				"flow_id", flowID, "node_id", id)
		}
	case len(raw.NextMap) > 0:
		node.Policy = domain.PolicyKeyed
		node.KeyMap = p.normalizeKeyMap(flowID, id, raw.NextMap)
		if raw.Next != "" {
			p.logger.Warn("Node has nextMap, ignoring next", "flow_id", flowID, "node_id", id)
		}
	case raw.Next != "":
		node.Policy = domain.PolicyLinear
		node.Next = raw.Next
	default:
		node.Policy = domain.PolicyNone
	}

	return node
}

// NormalizeKey is the normalization applied to both keymap keys and replies.
func NormalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func (p *Parser) normalizeKeyMap(flowID, nodeID string, in map[string]string) map[string]string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(in))
	for _, k := range keys {
		nk := NormalizeKey(k)
		if _, dup := out[nk]; dup {
			p.logger.Warn("Duplicate key after normalization, keeping first",
				"flow_id", flowID, "node_id", nodeID, "key", k)
			continue
		}
		out[nk] = in[k]
	}
	return out
}

func decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode flow document: %w", err)
	}
	return nil
}
