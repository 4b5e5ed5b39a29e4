package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bandungair/udara/internal/domain"
	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/domain/user"
	"github.com/bandungair/udara/internal/sheetcache"
)

const llmRecommendation = `{
	"risk_level": "high",
	"air_quality_index": 165,
	"primary_concern": "PM2.5 jauh di atas ambang sehat",
	"recommendations": [
		{"priority": "high", "category": "health", "action": "Gunakan masker N95", "reasoning": "Partikel halus tinggi"}
	],
	"warnings": [
		{"severity": "danger", "message": "Hindari olahraga luar ruangan", "affected_activities": ["lari", "bersepeda"]}
	],
	"personalized_advice": "Dengan asma Anda, tetap di dalam ruangan.",
	"next_check_time": "1 jam lagi"
}`

func testUser() *user.User {
	return &user.User{
		ID:       "u-1",
		Email:    "a@example.com",
		FullName: "A",
		Language: user.LangIndonesian,
		Age:      60,
	}
}

func newRecommendService(llm *fakeLLM, rows []reading.Record) *RecommendService {
	orch := sheetcache.New(sheetcache.NewStore(), &staticSource{rows: rows}, 30*time.Second, discardLogger())
	key := user.DeriveKey("test-secret")
	return NewRecommendService(llm, orch, key, nil, discardLogger())
}

func TestFromSheetsGeneratesRecommendation(t *testing.T) {
	llm := &fakeLLM{content: llmRecommendation}
	rows := []reading.Record{
		sensorRow("PM2.5", "30,5", "PM10", "40", "Location", "Dago"),
		sensorRow("PM2.5", "90,2", "PM10", "120", "Location", "Dago"),
	}
	svc := newRecommendService(llm, rows)

	rec, err := svc.FromSheets(context.Background(), testUser(), "sheet-1", "Sheet1", false)
	if err != nil {
		t.Fatal(err)
	}
	if rec.RiskLevel != "high" {
		t.Errorf("risk_level = %q", rec.RiskLevel)
	}
	if rec.Metadata.UserID != "u-1" || rec.Metadata.Location != "Dago" {
		t.Errorf("metadata = %+v", rec.Metadata)
	}
	if rec.Metadata.Model != "test-model" {
		t.Errorf("model = %q", rec.Metadata.Model)
	}

	// The latest row feeds the prompt, not the first.
	if !strings.Contains(llm.lastUsr, "90.2") {
		t.Errorf("prompt does not carry the latest PM2.5:\n%s", llm.lastUsr)
	}
}

func TestFromRecordsRequiresParticulates(t *testing.T) {
	svc := newRecommendService(&fakeLLM{content: llmRecommendation}, nil)

	rows := []reading.Record{sensorRow("Temperature", "28", "Humidity", "70")}
	_, err := svc.FromRecords(context.Background(), testUser(), rows)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	_, err = svc.FromRecords(context.Background(), testUser(), nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty rows: err = %v, want ErrValidation", err)
	}
}

func TestLLMFailureFallsBack(t *testing.T) {
	llm := &fakeLLM{err: errLLMDown}
	svc := newRecommendService(llm, nil)

	obs := reading.Observation{Location: "Bandung"}
	rec, err := svc.FromObservation(context.Background(), testUser(), obs)
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if rec.RiskLevel != "unknown" {
		t.Errorf("risk_level = %q, want unknown", rec.RiskLevel)
	}
	if rec.Error == "" {
		t.Error("fallback must carry the error message")
	}
	if rec.Recommendations == nil || rec.Warnings == nil {
		t.Error("fallback lists must be non-nil")
	}
}

func TestParseRecommendation(t *testing.T) {
	t.Run("code fence tolerated", func(t *testing.T) {
		rec := parseRecommendation("```json\n" + llmRecommendation + "\n```")
		if rec.RiskLevel != "high" {
			t.Errorf("risk_level = %q", rec.RiskLevel)
		}
	})

	t.Run("invalid risk level becomes unknown", func(t *testing.T) {
		rec := parseRecommendation(`{"risk_level": "apocalyptic"}`)
		if rec.RiskLevel != "unknown" {
			t.Errorf("risk_level = %q", rec.RiskLevel)
		}
		if rec.NextCheckTime != defaultNextCheck {
			t.Errorf("next_check_time = %q", rec.NextCheckTime)
		}
	})

	t.Run("garbage gets a fallback", func(t *testing.T) {
		rec := parseRecommendation("not json at all")
		if rec.Error == "" || rec.RiskLevel != "unknown" {
			t.Errorf("rec = %+v", rec)
		}
	})
}

func TestBuildProfileDecryptsHealthData(t *testing.T) {
	key := user.DeriveKey("test-secret")
	svc := NewRecommendService(&fakeLLM{}, nil, key, nil, discardLogger())

	u := testUser()
	enc, err := user.EncryptHealthData([]byte("asma"), key)
	if err != nil {
		t.Fatal(err)
	}
	u.HealthEncrypted = enc

	p := svc.buildProfile(u)
	if p.HealthConditions != "asma" {
		t.Errorf("health = %q", p.HealthConditions)
	}

	// A corrupt ciphertext degrades to a placeholder, never an error.
	u.HealthEncrypted = []byte("junk")
	p = svc.buildProfile(u)
	if p.HealthConditions != "Data tidak tersedia" {
		t.Errorf("health = %q", p.HealthConditions)
	}

	u.HealthEncrypted = nil
	p = svc.buildProfile(u)
	if p.HealthConditions != "Tidak ada" {
		t.Errorf("health = %q", p.HealthConditions)
	}
	if p.SensitivityLevel != "medium" {
		t.Errorf("sensitivity default = %q", p.SensitivityLevel)
	}
}
