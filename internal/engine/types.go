package engine

import "github.com/dataconfessional/confessional/internal/gpu"

// Health is the readiness snapshot computed by ComputeHealth. It is never
// persisted.
type Health struct {
	OllamaAvailable  bool         `json:"ollama_available"`
	EngineConfigured bool         `json:"engine_configured"`
	ActivePackID     *string      `json:"active_pack_id"`
	MissingModels    []string     `json:"missing_models"`
	GPUSummary       *gpu.Summary `json:"gpu_summary,omitempty"`
}

// Chat roles. Both use the active pack's analysis model.
const (
	RoleAnalysis = "analysis"
	RoleGossip   = "gossip"
)

// ProjectMeta identifies the project a chat question is about.
type ProjectMeta struct {
	Name     string `json:"name" validate:"required"`
	Audience string `json:"audience" validate:"required,oneof=self team exec"`
}

// ChatRequest is one question to answer against a data summary.
type ChatRequest struct {
	Role           string      `json:"role" validate:"required,oneof=analysis gossip"`
	Question       string      `json:"question" validate:"required"`
	ContextSummary string      `json:"context_summary"`
	ProjectMeta    ProjectMeta `json:"project_meta"`
}

// ReportRequest asks for a markdown report draft.
type ReportRequest struct {
	TemplateType string `json:"template_type" validate:"required"`
	Audience     string `json:"audience" validate:"required,oneof=self team exec"`
	DataSummary  string `json:"data_summary" validate:"required"`
}

// ReportResponse carries the drafted report and the model that wrote it.
type ReportResponse struct {
	Markdown  string `json:"markdown"`
	ModelName string `json:"model_name"`
}

// Install step states.
const (
	StepPulling = "pulling"
	StepPulled  = "pulled"
)

// InstallStep reports progress through a pack's model list.
type InstallStep struct {
	PackID string `json:"pack_id"`
	Model  string `json:"model"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	State  string `json:"state"`
}

// InstallObserver is notified before and after each model pull.
type InstallObserver func(InstallStep)

// Listener receives chat output. Increment is called once per text
// increment in arrival order; Done is called once, after the last
// increment, only when the stream completed successfully. An error from
// either aborts the chat.
type Listener interface {
	Increment(text string) error
	Done(full string) error
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are no-ops.
type ListenerFuncs struct {
	OnIncrement func(text string) error
	OnDone      func(full string) error
}

func (l ListenerFuncs) Increment(text string) error {
	if l.OnIncrement == nil {
		return nil
	}
	return l.OnIncrement(text)
}

func (l ListenerFuncs) Done(full string) error {
	if l.OnDone == nil {
		return nil
	}
	return l.OnDone(full)
}
