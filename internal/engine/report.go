package engine

import (
	"context"
	"time"

	"github.com/dataconfessional/confessional/internal/ollama"
	"github.com/dataconfessional/confessional/internal/prompts"
	"github.com/dataconfessional/confessional/internal/storage"
)

const (
	reportTemperature = 0.7
	reportTopP        = 0.8
)

// GenerateReport drafts a markdown report with the active pack's report
// model.
func (s *Service) GenerateReport(ctx context.Context, req ReportRequest) (ReportResponse, error) {
	const op = "report"

	cfg, b, err := s.loadBackend(op)
	if err != nil {
		return ReportResponse{}, err
	}
	_, pack, ok := cfg.ActivePack()
	if !ok {
		return ReportResponse{}, configError(op, errNoActivePack)
	}
	model := pack.ReportModel

	start := time.Now()
	content, err := b.Complete(ctx, ollama.ChatCompletionRequest{
		Model: model,
		Messages: []ollama.Message{
			{Role: "user", Content: prompts.Report(req.TemplateType, req.Audience, req.DataSummary)},
		},
		Temperature: reportTemperature,
		TopP:        reportTopP,
	})
	if err != nil {
		err = classify(op, err)
	}
	s.record(storage.Interaction{
		Kind:     storage.KindReport,
		Model:    model,
		Role:     req.TemplateType,
		Audience: req.Audience,
		Prompt:   req.DataSummary,
		Response: content,
	}, start, err)
	if err != nil {
		return ReportResponse{}, err
	}

	return ReportResponse{Markdown: content, ModelName: model}, nil
}
