package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/validator"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Init prepares the library: it splits a legacy monolithic template array
// into per-template keys, seeds defaults into empty collections, and merges
// back any default flow whose id is missing.
func (l *Library) Init(ctx context.Context) error {
	if err := l.migrateLegacyTemplates(ctx); err != nil {
		return err
	}

	keys, err := l.kv.Keys(ctx, TemplatePrefix)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	if len(keys) == 0 {
		l.logger.Info("Seeding default templates")
		if err := l.SaveTemplates(ctx, DefaultTemplates()); err != nil {
			return err
		}
	}

	if _, err := l.kv.Get(ctx, KeyRules); errors.Is(err, domain.ErrNotFound) {
		if err := l.SaveRules(ctx, DefaultRules()); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("failed to read rules: %w", err)
	}

	flows, err := l.Flows(ctx)
	if err != nil {
		return err
	}
	existing := make(map[string]bool, len(flows))
	for _, f := range flows {
		existing[f.ID] = true
	}
	merged := flows
	for _, f := range DefaultFlows() {
		if !existing[f.ID] {
			merged = append(merged, f)
		}
	}
	if len(merged) != len(flows) {
		l.logger.Info("Merging default flows", "added", len(merged)-len(flows))
		// Stored flows were validated on save; only the defaults are new here.
		if err := l.setJSON(ctx, KeyFlows, merged); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) migrateLegacyTemplates(ctx context.Context) error {
	var legacy []domain.Template
	ok, err := l.getJSON(ctx, keyLegacyTemplates, &legacy)
	if err != nil || !ok {
		return err
	}

	l.logger.Info("Migrating monolithic templates to split keys", "count", len(legacy))
	for _, t := range legacy {
		if t.ID == "" {
			continue
		}
		if err := l.setJSON(ctx, TemplatePrefix+t.ID, t); err != nil {
			return err
		}
	}
	return l.kv.Delete(ctx, keyLegacyTemplates)
}

// ResetToDefaults drops templates, rules and flows and re-runs Init.
// Favorites and settings survive.
func (l *Library) ResetToDefaults(ctx context.Context) error {
	keys, err := l.kv.Keys(ctx, TemplatePrefix)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	keys = append(keys, KeyTemplateOrder, KeyRules, KeyFlows)
	for _, key := range keys {
		if err := l.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return l.Init(ctx)
}

// ExportVersion is the version written into export documents.
const ExportVersion = 1

// Export is the single document used to move a library between installs.
type Export struct {
	Version   int               `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Templates []domain.Template `json:"templates"`
	Rules     []domain.Rule     `json:"rules"`
	Flows     []*domain.Flow    `json:"flows"`
}

// Export snapshots templates, rules and flows.
func (l *Library) Export(ctx context.Context) (*Export, error) {
	templates, err := l.Templates(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := l.Rules(ctx)
	if err != nil {
		return nil, err
	}
	flows, err := l.Flows(ctx)
	if err != nil {
		return nil, err
	}
	return &Export{
		Version:   ExportVersion,
		Timestamp: time.Now().UTC(),
		Templates: templates,
		Rules:     rules,
		Flows:     flows,
	}, nil
}

// importDocument distinguishes absent collections from empty ones.
type importDocument struct {
	Templates *[]domain.Template `json:"templates"`
	Rules     *[]domain.Rule     `json:"rules"`
	Flows     json.RawMessage    `json:"flows"`
}

// Import replaces every collection present in data. Flows are compiled and
// validated before anything is written, so an invalid flow rejects the whole
// import.
func (l *Library) Import(ctx context.Context, data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return errors.New("no data provided")
	}

	var doc importDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode import: %w", err)
	}

	var flows []*domain.Flow
	hasFlows := len(doc.Flows) > 0 && string(doc.Flows) != "null"
	if hasFlows {
		parsed, err := l.parser.Parse(doc.Flows)
		if err != nil {
			return err
		}
		flows = parsed
		for _, f := range flows {
			if f.ID == "" {
				f.ID = l.NewID()
			}
		}
		if err := validator.ValidateAll(flows); err != nil {
			return err
		}
	}

	if doc.Templates != nil {
		if err := l.ReplaceTemplates(ctx, *doc.Templates); err != nil {
			return err
		}
	}
	if doc.Rules != nil {
		if err := l.SaveRules(ctx, *doc.Rules); err != nil {
			return err
		}
	}
	if hasFlows {
		if err := l.SaveFlows(ctx, flows); err != nil {
			return err
		}
	}
	return nil
}
