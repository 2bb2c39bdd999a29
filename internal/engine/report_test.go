package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func reportReq() ReportRequest {
	return ReportRequest{TemplateType: "quarterly review", Audience: "team", DataSummary: "revenue: 1.2M"}
}

func TestReport_Success(t *testing.T) {
	fake := &fakeOllama{completeBody: `{"choices":[{"message":{"role":"assistant","content":"# Q3\n\n## Executive Summary"}}]}`}
	rec := &recordingStore{}
	svc, _ := newTestService(t, fake, "analyst", WithRecorder(rec))

	resp, err := svc.GenerateReport(context.Background(), reportReq())
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if resp.Markdown != "# Q3\n\n## Executive Summary" {
		t.Errorf("Markdown = %q", resp.Markdown)
	}
	if resp.ModelName != "writer:7b" {
		t.Errorf("ModelName = %q, want the report model", resp.ModelName)
	}

	r := fake.chatRequests()[0]
	if r["model"] != "writer:7b" || r["stream"] != false || r["temperature"] != 0.7 || r["top_p"] != 0.8 {
		t.Errorf("request = %v", r)
	}
	if _, ok := r["top_k"]; ok {
		t.Error("report request carries top_k")
	}
	msgs := r["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["role"] != "user" {
		t.Fatalf("messages = %v, want a single user message", msgs)
	}
	content := msgs[0].(map[string]any)["content"].(string)
	for _, want := range []string{"revenue: 1.2M", "- Type: quarterly review", "- Audience: team"} {
		if !strings.Contains(content, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if len(rec.saved) != 1 || rec.saved[0].Kind != "report" || rec.saved[0].Role != "quarterly review" {
		t.Errorf("recorded = %+v", rec.saved)
	}
}

func TestReport_NoActivePack(t *testing.T) {
	fake := &fakeOllama{}
	svc, _ := newTestService(t, fake, "")

	if _, err := svc.GenerateReport(context.Background(), reportReq()); !errors.Is(err, ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
	if len(fake.chatRequests()) != 0 {
		t.Error("report made a network call without an active pack")
	}
}

func TestReport_ServerError(t *testing.T) {
	fake := &fakeOllama{completeStatus: http.StatusNotFound, completeBody: `{"error":"model \"writer:7b\" not found, try pulling it first"}`}
	svc, _ := newTestService(t, fake, "analyst")

	_, err := svc.GenerateReport(context.Background(), reportReq())
	var ee *Error
	if !errors.As(err, &ee) || ee.Kind != KindServerError || ee.Status != http.StatusNotFound {
		t.Fatalf("err = %v, want ServerError 404", err)
	}
	if !strings.Contains(ee.Body, "try pulling it first") {
		t.Errorf("Body = %q", ee.Body)
	}
	if Advise(err).Code != CodeModelMissing {
		t.Errorf("Advise code = %s, want MODEL_MISSING", Advise(err).Code)
	}
}

func TestReport_MalformedResponse(t *testing.T) {
	fake := &fakeOllama{completeBody: `{"choices":[]}`}
	rec := &recordingStore{}
	svc, _ := newTestService(t, fake, "analyst", WithRecorder(rec))

	_, err := svc.GenerateReport(context.Background(), reportReq())
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("err = %v, want ErrProtocol", err)
	}
	if !strings.Contains(err.Error(), "malformed response") {
		t.Errorf("err = %q", err)
	}
	if len(rec.saved) != 1 || rec.saved[0].Status != "failed" {
		t.Errorf("recorded = %+v, want one failed interaction", rec.saved)
	}
}
