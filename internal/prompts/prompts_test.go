package prompts

import (
	"strings"
	"testing"
)

func TestSystem_Roles(t *testing.T) {
	analysis := System("analysis")
	gossip := System(RoleGossip)

	if strings.Contains(analysis, "STYLE:") {
		t.Error("analysis prompt contains the gossip style block")
	}
	if !strings.HasPrefix(gossip, analysis) {
		t.Error("gossip prompt should extend the analysis prompt")
	}
	if !strings.Contains(gossip, `"data gossip"`) {
		t.Error("gossip prompt missing style guidance")
	}
	if System("unknown") != analysis {
		t.Error("unknown role should fall back to the analysis persona")
	}
}

func TestUser_EmbedsFieldsInOrder(t *testing.T) {
	q := "Why did churn spike in %s Q3?"
	got := User("Acme Churn", "exec", "rows: 1200\nchurn: 4.1%", q)

	idx := func(s string) int {
		i := strings.Index(got, s)
		if i < 0 {
			t.Fatalf("prompt missing %q:\n%s", s, got)
		}
		return i
	}

	name := idx("- Project name: Acme Churn")
	aud := idx("- Intended audience: exec")
	data := idx("churn: 4.1%")
	question := idx("QUESTION:\n\n" + q)

	if !(name < aud && aud < data && data < question) {
		t.Error("prompt sections out of order")
	}
	if !strings.HasSuffix(got, q) {
		t.Error("question should be the final text, verbatim")
	}
}

func TestReport_Structure(t *testing.T) {
	got := Report("monthly review", "team", "revenue: 10k")

	for _, want := range []string{
		"PROJECT DATA:\n\nrevenue: 10k",
		"- Type: monthly review",
		"- Audience: team  (one of: self, team, exec)",
		"## Executive Summary",
		"## Key Findings",
		"## Supporting Evidence",
		"## Risks and Questions",
		"## Next Steps",
		"Do not invent data you do not see in PROJECT DATA.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report prompt missing %q", want)
		}
	}
}
