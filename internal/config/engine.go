package config

import (
	"errors"
	"fmt"
	"sort"
)

// ModelPack is a named bundle of the three models one deployment needs.
type ModelPack struct {
	Label          string `json:"label"`
	AnalysisModel  string `json:"analysis_model"`
	ReportModel    string `json:"report_model"`
	EmbeddingModel string `json:"embedding_model"`
}

// Models returns the pack's model identifiers in analysis, report, embedding
// order. Identifiers shared between roles appear once, at their first position.
func (p ModelPack) Models() []string {
	seen := make(map[string]bool, 3)
	out := make([]string, 0, 3)
	for _, m := range []string{p.AnalysisModel, p.ReportModel, p.EmbeddingModel} {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// EngineConfig is the persisted engine document. ActivePackID, when set,
// must name a key of Packs; only a successful pack install writes it.
type EngineConfig struct {
	Provider     string               `json:"provider"`
	BaseURL      string               `json:"base_url"`
	ActivePackID *string              `json:"active_pack_id"`
	Packs        map[string]ModelPack `json:"packs"`
}

// DefaultEngineConfig returns the first-run document: two packs with the
// analyst pack active.
func DefaultEngineConfig() EngineConfig {
	active := "analyst_fast"
	return EngineConfig{
		Provider:     "ollama",
		BaseURL:      "http://127.0.0.1:11434",
		ActivePackID: &active,
		Packs: map[string]ModelPack{
			"light_fast": {
				Label:          "Fast & Light",
				AnalysisModel:  "qwen3:4b",
				ReportModel:    "qwen3:4b",
				EmbeddingModel: "qwen3-embedding:4b",
			},
			"analyst_fast": {
				Label:          "Analyst Pack (Recommended)",
				AnalysisModel:  "gurubot/glm-4.6v-flash-gguf:q4_k_m",
				ReportModel:    "gurubot/glm-4.6v-flash-gguf:q4_k_m",
				EmbeddingModel: "qwen3-embedding:4b",
			},
		},
	}
}

// ActivePack resolves the active pack. ok is false when no pack is active or
// the active id does not resolve.
func (c EngineConfig) ActivePack() (id string, pack ModelPack, ok bool) {
	if c.ActivePackID == nil {
		return "", ModelPack{}, false
	}
	pack, ok = c.Packs[*c.ActivePackID]
	return *c.ActivePackID, pack, ok
}

// Pack looks up a pack by id.
func (c EngineConfig) Pack(id string) (ModelPack, bool) {
	p, ok := c.Packs[id]
	return p, ok
}

// PackIDs returns the pack ids in lexical order.
func (c EngineConfig) PackIDs() []string {
	ids := make([]string, 0, len(c.Packs))
	for id := range c.Packs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate reports every structural problem with the document.
func (c EngineConfig) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is empty"))
	}
	if c.ActivePackID != nil {
		if _, ok := c.Packs[*c.ActivePackID]; !ok {
			errs = append(errs, fmt.Errorf("active_pack_id %q does not name a pack", *c.ActivePackID))
		}
	}
	for _, id := range c.PackIDs() {
		p := c.Packs[id]
		if p.AnalysisModel == "" || p.ReportModel == "" || p.EmbeddingModel == "" {
			errs = append(errs, fmt.Errorf("pack %q has an empty model identifier", id))
		}
	}
	return errors.Join(errs...)
}
