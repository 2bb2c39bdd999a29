package engine

// PackInfo describes one configured pack.
type PackInfo struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	AnalysisModel  string `json:"analysis_model"`
	ReportModel    string `json:"report_model"`
	EmbeddingModel string `json:"embedding_model"`
	Active         bool   `json:"active"`
}

// Packs lists the configured packs sorted by id.
func (s *Service) Packs() ([]PackInfo, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return nil, configError("packs", err)
	}
	activeID, _, _ := cfg.ActivePack()

	out := make([]PackInfo, 0, len(cfg.Packs))
	for _, id := range cfg.PackIDs() {
		p := cfg.Packs[id]
		out = append(out, PackInfo{
			ID:             id,
			Label:          p.Label,
			AnalysisModel:  p.AnalysisModel,
			ReportModel:    p.ReportModel,
			EmbeddingModel: p.EmbeddingModel,
			Active:         id == activeID,
		})
	}
	return out, nil
}
