// Package library is the template store: templates, keyword rules, flows,
// favorites and settings persisted in a key-value backend.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/compiler"
	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/internal/validator"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
	"github.com/oklog/ulid/v2"
)

// Storage keys.
const (
	TemplatePrefix   = "tpl_"
	KeyTemplateOrder = "template_order"
	KeyRules         = "rules"
	KeyFlows         = "flows"
	KeyFavorites     = "favorite_templates"
	KeySettings      = "settings"

	// keyLegacyTemplates held every template in a single array before the split.
	keyLegacyTemplates = "templates"
)

// Library implements ports.Catalog on top of a KVStore.
type Library struct {
	kv     ports.KVStore
	parser *compiler.Parser
	logger *slog.Logger

	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// Option configures the Library.
type Option func(*Library)

// WithLogger sets the library logger. It is shared with the flow parser.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// New creates a library over kv. Call Init before first use.
func New(kv ports.KVStore, opts ...Option) *Library {
	l := &Library{
		kv:      kv,
		logger:  logging.NewNop(),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.parser = compiler.NewParser(compiler.WithLogger(l.logger))
	return l
}

var _ ports.Catalog = (*Library)(nil)

// NewID returns a fresh sortable id.
func (l *Library) NewID() string {
	l.entropyMu.Lock()
	defer l.entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), l.entropy).String())
}

func (l *Library) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := l.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (l *Library) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := l.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Templates returns every template: first in stored order, then any template
// missing from the order (sorted by id).
func (l *Library) Templates(ctx context.Context) ([]domain.Template, error) {
	keys, err := l.kv.Keys(ctx, TemplatePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	sort.Strings(keys)

	byID := make(map[string]domain.Template, len(keys))
	var loose []string
	for _, key := range keys {
		var t domain.Template
		ok, err := l.getJSON(ctx, key, &t)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if t.ID == "" {
			t.ID = strings.TrimPrefix(key, TemplatePrefix)
		}
		byID[t.ID] = t
		loose = append(loose, t.ID)
	}

	var order []string
	if _, err := l.getJSON(ctx, KeyTemplateOrder, &order); err != nil {
		return nil, err
	}

	out := make([]domain.Template, 0, len(byID))
	for _, id := range order {
		if t, ok := byID[id]; ok {
			out = append(out, t)
			delete(byID, id)
		}
	}
	for _, id := range loose {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Template returns a single template or domain.ErrTemplateNotFound.
func (l *Library) Template(ctx context.Context, id string) (*domain.Template, error) {
	var t domain.Template
	ok, err := l.getJSON(ctx, TemplatePrefix+id, &t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return &t, nil
}

// SaveTemplate stores a template, generating an id when it has none, and
// appends new ids to the display order.
func (l *Library) SaveTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	if t.ID == "" {
		t.ID = l.NewID()
	}
	if err := l.setJSON(ctx, TemplatePrefix+t.ID, t); err != nil {
		return t, err
	}

	var order []string
	if _, err := l.getJSON(ctx, KeyTemplateOrder, &order); err != nil {
		return t, err
	}
	for _, id := range order {
		if id == t.ID {
			return t, nil
		}
	}
	return t, l.setJSON(ctx, KeyTemplateOrder, append(order, t.ID))
}

// DeleteTemplate removes a template and its place in the order.
// Flow options that still reference it fail when clicked.
func (l *Library) DeleteTemplate(ctx context.Context, id string) error {
	if err := l.kv.Delete(ctx, TemplatePrefix+id); err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}

	var order []string
	ok, err := l.getJSON(ctx, KeyTemplateOrder, &order)
	if err != nil || !ok {
		return err
	}
	kept := order[:0]
	for _, o := range order {
		if o != id {
			kept = append(kept, o)
		}
	}
	return l.setJSON(ctx, KeyTemplateOrder, kept)
}

// SaveTemplates writes every template and makes their sequence the display order.
func (l *Library) SaveTemplates(ctx context.Context, templates []domain.Template) error {
	order := make([]string, 0, len(templates))
	for _, t := range templates {
		if t.ID == "" {
			t.ID = l.NewID()
		}
		if err := l.setJSON(ctx, TemplatePrefix+t.ID, t); err != nil {
			return err
		}
		order = append(order, t.ID)
	}
	return l.setJSON(ctx, KeyTemplateOrder, order)
}

// ReplaceTemplates is SaveTemplates plus removal of every template not listed.
func (l *Library) ReplaceTemplates(ctx context.Context, templates []domain.Template) error {
	keep := make(map[string]bool, len(templates))
	for i := range templates {
		if templates[i].ID == "" {
			templates[i].ID = l.NewID()
		}
		keep[TemplatePrefix+templates[i].ID] = true
	}

	keys, err := l.kv.Keys(ctx, TemplatePrefix)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	for _, key := range keys {
		if !keep[key] {
			if err := l.kv.Delete(ctx, key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
	}
	return l.SaveTemplates(ctx, templates)
}

// Rules returns the keyword rules in priority order.
func (l *Library) Rules(ctx context.Context) ([]domain.Rule, error) {
	var rules []domain.Rule
	if _, err := l.getJSON(ctx, KeyRules, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// SaveRules replaces the rules. Rules without id get one.
func (l *Library) SaveRules(ctx context.Context, rules []domain.Rule) error {
	if rules == nil {
		rules = []domain.Rule{}
	}
	for i := range rules {
		if rules[i].ID == "" {
			rules[i].ID = l.NewID()
		}
	}
	return l.setJSON(ctx, KeyRules, rules)
}

// Flows returns every stored flow, compiled.
func (l *Library) Flows(ctx context.Context) ([]*domain.Flow, error) {
	data, err := l.kv.Get(ctx, KeyFlows)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read flows: %w", err)
	}
	return l.parser.Parse(data)
}

// Flow returns a single flow or domain.ErrFlowNotFound.
func (l *Library) Flow(ctx context.Context, id string) (*domain.Flow, error) {
	flows, err := l.Flows(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range flows {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
}

// SaveFlows validates every flow and replaces the stored set. Nothing is
// written when any flow is invalid.
func (l *Library) SaveFlows(ctx context.Context, flows []*domain.Flow) error {
	for _, f := range flows {
		if f.ID == "" {
			f.ID = l.NewID()
		}
	}
	if err := validator.ValidateAll(flows); err != nil {
		return err
	}
	if flows == nil {
		flows = []*domain.Flow{}
	}
	return l.setJSON(ctx, KeyFlows, flows)
}

// ParseFlows compiles authored flow documents (JSON or YAML) without storing them.
func (l *Library) ParseFlows(data []byte) ([]*domain.Flow, error) {
	return l.parser.Parse(data)
}

// Favorites returns the favorite template ids.
func (l *Library) Favorites(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := l.getJSON(ctx, KeyFavorites, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ToggleFavorite flips a template in or out of the favorites and reports the new membership.
func (l *Library) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	ids, err := l.Favorites(ctx)
	if err != nil {
		return false, err
	}

	out := make([]string, 0, len(ids)+1)
	found := false
	for _, f := range ids {
		if f == id {
			found = true
			continue
		}
		out = append(out, f)
	}
	if !found {
		out = append(out, id)
	}
	return !found, l.setJSON(ctx, KeyFavorites, out)
}

// Settings returns the stored settings, or the defaults.
func (l *Library) Settings(ctx context.Context) (domain.Settings, error) {
	s := DefaultSettings()
	if _, err := l.getJSON(ctx, KeySettings, &s); err != nil {
		return DefaultSettings(), err
	}
	return s, nil
}

// SaveSettings replaces the settings.
func (l *Library) SaveSettings(ctx context.Context, s domain.Settings) error {
	return l.setJSON(ctx, KeySettings, s)
}
