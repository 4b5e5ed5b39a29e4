package service

import (
	"context"
	"testing"
	"time"

	"github.com/bandungair/udara/internal/domain/user"
)

const llmTips = `{
	"title": "Udara Buruk Hari Ini",
	"explanation": "PM2.5 tinggi di area ini.",
	"tips": [
		{"category": "Kesehatan", "tip": "Pakai masker N95", "priority": "high"},
		{"tip": "Kurangi aktivitas luar"}
	],
	"health_impact": "Iritasi saluran napas.",
	"prevention": "Tetap di dalam ruangan."
}`

func newTipsService(llm *fakeLLM) (*TipsService, *fakeByteCache) {
	c := newFakeByteCache()
	return NewTipsService(llm, c, 15*time.Minute, nil, discardLogger()), c
}

func TestGenerateTips(t *testing.T) {
	llm := &fakeLLM{content: llmTips}
	svc, _ := newTipsService(llm)

	pm25 := 95.0
	tips, err := svc.Generate(context.Background(), TipsRequest{
		PM25:      &pm25,
		RiskLevel: "high",
		Location:  "Dago",
		Language:  user.LangIndonesian,
	})
	if err != nil {
		t.Fatal(err)
	}
	if tips.Title != "Udara Buruk Hari Ini" {
		t.Errorf("title = %q", tips.Title)
	}
	if len(tips.TipList) != 2 {
		t.Fatalf("tips = %d, want 2", len(tips.TipList))
	}

	// Missing tip fields get defaults.
	if tips.TipList[1].Category != "Kesehatan" || tips.TipList[1].Priority != "medium" {
		t.Errorf("tip defaults = %+v", tips.TipList[1])
	}
}

func TestGenerateTipsCached(t *testing.T) {
	llm := &fakeLLM{content: llmTips}
	svc, _ := newTipsService(llm)
	ctx := context.Background()

	req := TipsRequest{RiskLevel: "high", Language: user.LangEnglish}
	if _, err := svc.Generate(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Generate(ctx, req); err != nil {
		t.Fatal(err)
	}
	if llm.calls != 1 {
		t.Errorf("llm calls = %d, want 1 with a warm cache", llm.calls)
	}

	// A different language is a different cache entry.
	if _, err := svc.Generate(ctx, TipsRequest{RiskLevel: "high", Language: user.LangSundanese}); err != nil {
		t.Fatal(err)
	}
	if llm.calls != 2 {
		t.Errorf("llm calls = %d, want 2 after new language", llm.calls)
	}
}

func TestGenerateTipsFallback(t *testing.T) {
	llm := &fakeLLM{err: errLLMDown}
	svc, c := newTipsService(llm)

	tips, err := svc.Generate(context.Background(), TipsRequest{RiskLevel: "high", Language: user.LangIndonesian})
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if tips.Title != "Tips Kesehatan & Pencegahan" {
		t.Errorf("title = %q", tips.Title)
	}
	if len(tips.TipList) == 0 {
		t.Error("fallback tips empty")
	}
	if len(c.entries) != 0 {
		t.Error("fallback answers must not be cached")
	}

	// Unparseable LLM output also falls back.
	llm.err = nil
	llm.content = "oops"
	tips, err = svc.Generate(context.Background(), TipsRequest{RiskLevel: "moderate", Language: user.LangEnglish})
	if err != nil {
		t.Fatal(err)
	}
	if tips.Title != "Health & Prevention Tips" {
		t.Errorf("title = %q", tips.Title)
	}
}

func TestNormalizeRiskLevel(t *testing.T) {
	cases := map[string]string{
		"high":     "high",
		"CRITICAL": "high",
		"medium":   "moderate",
		"moderate": "moderate",
		"low":      "low",
		"":         "low",
		"unknown":  "low",
	}
	for in, want := range cases {
		if got := normalizeRiskLevel(in); got != want {
			t.Errorf("normalizeRiskLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
