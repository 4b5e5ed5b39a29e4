package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bandungair/udara/internal/adapter/otel"
	"github.com/bandungair/udara/internal/domain"
	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/domain/user"
	"github.com/bandungair/udara/internal/sheetcache"
)

// LLMClient is the completion surface the services need from the Groq adapter.
type LLMClient interface {
	CompleteJSON(ctx context.Context, system, userPrompt string, temperature float64) (string, error)
	Model() string
}

// Valid risk levels an LLM answer may carry. Anything else becomes unknown.
var validRiskLevels = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

const defaultNextCheck = "2 jam lagi"

// Action is one prioritized recommendation step.
type Action struct {
	Priority  string `json:"priority"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Reasoning string `json:"reasoning"`
}

// Warning flags activities affected by the current conditions.
type Warning struct {
	Severity           string   `json:"severity"`
	Message            string   `json:"message"`
	AffectedActivities []string `json:"affected_activities"`
}

// Metadata ties a recommendation to its inputs.
type Metadata struct {
	UserID    string `json:"user_id"`
	Location  string `json:"location"`
	Timestamp string `json:"timestamp,omitempty"`
	Language  string `json:"language"`
	Model     string `json:"model,omitempty"`
}

// Recommendation is a personalized air-quality health warning.
type Recommendation struct {
	RiskLevel          string    `json:"risk_level"`
	AirQualityIndex    float64   `json:"air_quality_index,omitempty"`
	PrimaryConcern     string    `json:"primary_concern"`
	Recommendations    []Action  `json:"recommendations"`
	Warnings           []Warning `json:"warnings"`
	PersonalizedAdvice string    `json:"personalized_advice"`
	NextCheckTime      string    `json:"next_check_time"`
	Error              string    `json:"error,omitempty"`
	Metadata           Metadata  `json:"metadata"`
}

// RecommendService generates personalized recommendations from the latest
// normalized observation and the user's profile.
type RecommendService struct {
	llm       LLMClient
	cache     *sheetcache.Orchestrator
	healthKey []byte
	metrics   *otel.Metrics
	log       *slog.Logger
}

// NewRecommendService creates a RecommendService. healthKey decrypts stored
// health conditions for prompt building.
func NewRecommendService(llm LLMClient, cache *sheetcache.Orchestrator, healthKey []byte, metrics *otel.Metrics, log *slog.Logger) *RecommendService {
	return &RecommendService{
		llm:       llm,
		cache:     cache,
		healthKey: healthKey,
		metrics:   metrics,
		log:       log,
	}
}

// FromSheets reads the worksheet through the cache, normalizes the latest row,
// and generates a recommendation.
func (s *RecommendService) FromSheets(ctx context.Context, u *user.User, spreadsheetID, worksheet string, forceRefresh bool) (*Recommendation, error) {
	rows, err := s.cache.ReadThrough(ctx, sheetcache.Key{SpreadsheetID: spreadsheetID, Worksheet: worksheet}, forceRefresh)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	return s.FromRecords(ctx, u, rows)
}

// FromRecords normalizes the latest of rows and generates a recommendation.
func (s *RecommendService) FromRecords(ctx context.Context, u *user.User, rows []reading.Record) (*Recommendation, error) {
	latest, err := reading.Latest(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}
	obs := reading.Normalize(latest)
	if !obs.Valid() {
		return nil, fmt.Errorf("%w: observation is missing pm25 or pm10", domain.ErrValidation)
	}
	return s.FromObservation(ctx, u, obs)
}

// FromObservation generates a recommendation for an already-normalized
// observation. LLM failures degrade to a conservative fallback payload
// instead of an error.
func (s *RecommendService) FromObservation(ctx context.Context, u *user.User, obs reading.Observation) (*Recommendation, error) {
	lang := u.Language
	if lang == "" {
		lang = user.LangIndonesian
	}
	profile := s.buildProfile(u)

	s.metrics.AddLLMRequest(ctx)
	content, err := s.llm.CompleteJSON(ctx, recommendSystemPrompt, buildRecommendPrompt(obs, profile, lang), 0.7)

	var rec *Recommendation
	if err != nil {
		s.metrics.AddLLMFailure(ctx)
		s.log.ErrorContext(ctx, "recommendation completion failed", "error", err, "user_id", u.ID)
		rec = fallbackRecommendation(fmt.Sprintf("Error generating recommendation: %s", err))
	} else {
		rec = parseRecommendation(content)
		if rec.Error != "" {
			s.metrics.AddLLMFailure(ctx)
		}
	}

	rec.Metadata = Metadata{
		UserID:    u.ID,
		Location:  obs.Location,
		Timestamp: obs.Timestamp,
		Language:  lang,
		Model:     s.llm.Model(),
	}
	return rec, nil
}

// profile is the prompt-facing view of a user.
type profile struct {
	Age              int
	Occupation       string
	Location         string
	ActivityLevel    string
	SensitivityLevel string
	HealthConditions string
}

func (s *RecommendService) buildProfile(u *user.User) profile {
	p := profile{
		Age:              u.Age,
		Occupation:       u.Occupation,
		Location:         u.Location,
		ActivityLevel:    u.ActivityLevel,
		SensitivityLevel: u.SensitivityLevel,
		HealthConditions: "Tidak ada",
	}
	if p.SensitivityLevel == "" {
		p.SensitivityLevel = "medium"
	}
	if len(u.HealthEncrypted) > 0 {
		plain, err := user.DecryptHealthData(u.HealthEncrypted, s.healthKey)
		if err != nil {
			p.HealthConditions = "Data tidak tersedia"
		} else {
			p.HealthConditions = string(plain)
		}
	}
	return p
}

const recommendSystemPrompt = `You are an environmental health and meteorology expert focused on West Java air pollution (BMKG Bandung context).
Use current weather/air-quality data and user profile (age, occupation, health conditions, location, sensitivity) to produce a personalized warning.
Reasoning steps:
- Analyze data: PM2.5, PM10, O3, NO2, SO2, CO, temperature, humidity, vulnerability.
- Assess risk_level: low|medium|high|critical (WHO/IDN aligned).
- Personalize to the profile (child, elderly, respiratory/cardiac conditions).
- Provide 3-5 concrete, prioritized actions and clear warnings (what to avoid, impacted activities).
Output JSON strictly:
{
  "risk_level": "low|medium|high|critical",
  "air_quality_index": number,
  "primary_concern": "string",
  "recommendations": [
    {"priority": "high|medium|low", "category": "health|activity|equipment|medication", "action": "string", "reasoning": "string"}
  ],
  "warnings": [
    {"severity": "info|warning|danger", "message": "string", "affected_activities": ["string"]}
  ],
  "personalized_advice": "string",
  "next_check_time": "string"
}
Style: direct, concise, actionable, non-chatty, include brief reasoning for each action. If data insufficient, pick the safest conservative risk_level and still return the full JSON.`

var recommendTasks = map[string]string{
	user.LangIndonesian: "TUGAS:\nBerdasarkan data di atas, berikan rekomendasi peringatan kesehatan yang PERSONALISASI untuk pengguna ini.\nFokus pada:\n1. Aktivitas yang HARUS DIHINDARI atau DIBATASI\n2. Perlindungan yang DIPERLUKAN\n3. Tindakan pencegahan SPESIFIK untuk profil pengguna ini\n4. Timeline kapan harus mengecek ulang\n\nBerikan output dalam format JSON sesuai dengan spesifikasi sistem.",
	user.LangEnglish:    "TASK:\nBased on the above data, provide PERSONALIZED health warning recommendations for this user.\nFocus on:\n1. Activities that MUST BE AVOIDED or LIMITED\n2. Protection REQUIRED\n3. SPECIFIC preventive measures for this user profile\n4. Timeline when to check again\n\nProvide output in JSON format according to system specifications.",
	user.LangSundanese:  "TUGAS:\nDumasar kana data di luhur, masihan rekomendasi peringatan kaséhatan anu PERSONALISASI pikeun pangguna ieu.\nFokus kana:\n1. Aktivitas anu KUDU DIHINDARI atanapi DIBATASI\n2. Perlindungan anu DIPERLUKAN\n3. Tindakan pencegahan SPESIFIK pikeun profil pangguna ieu\n4. Timeline iraha kudu mariksa deui\n\nMasihan output dina format JSON luyu sareng spésifikasi sistem.",
}

func buildRecommendPrompt(obs reading.Observation, p profile, lang string) string {
	var b strings.Builder
	b.WriteString("DATA CUACA & KUALITAS UDARA TERKINI:\n")
	fmt.Fprintf(&b, "- PM2.5: %s μg/m³\n", fmtValue(obs.PM25))
	fmt.Fprintf(&b, "- PM10: %s μg/m³\n", fmtValue(obs.PM10))
	fmt.Fprintf(&b, "- O3: %s ppb\n", fmtValue(obs.O3))
	fmt.Fprintf(&b, "- NO2: %s ppb\n", fmtValue(obs.NO2))
	fmt.Fprintf(&b, "- SO2: %s ppb\n", fmtValue(obs.SO2))
	fmt.Fprintf(&b, "- CO: %s ppm\n", fmtValue(obs.CO))
	fmt.Fprintf(&b, "- Suhu: %s°C\n", fmtValue(obs.Temperature))
	fmt.Fprintf(&b, "- Kelembaban: %s%%\n", fmtValue(obs.Humidity))
	fmt.Fprintf(&b, "- Lokasi: %s\n", orNA(obs.Location))
	fmt.Fprintf(&b, "- Timestamp: %s\n", orNA(obs.Timestamp))

	b.WriteString("\nPROFIL PENGGUNA:\n")
	if p.Age > 0 {
		fmt.Fprintf(&b, "- Umur: %d tahun\n", p.Age)
	} else {
		b.WriteString("- Umur: N/A\n")
	}
	fmt.Fprintf(&b, "- Pekerjaan: %s\n", orNA(p.Occupation))
	fmt.Fprintf(&b, "- Lokasi: %s\n", orNA(p.Location))
	fmt.Fprintf(&b, "- Level Aktivitas: %s\n", orNA(p.ActivityLevel))
	fmt.Fprintf(&b, "- Level Sensitivitas: %s\n", orNA(p.SensitivityLevel))
	fmt.Fprintf(&b, "- Kondisi Kesehatan: %s\n", p.HealthConditions)

	b.WriteString("\n")
	task, ok := recommendTasks[lang]
	if !ok {
		task = recommendTasks[user.LangIndonesian]
	}
	b.WriteString(task)
	return b.String()
}

func fmtValue(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// parseRecommendation decodes an LLM answer, tolerating code fences and
// normalizing missing or invalid fields.
func parseRecommendation(content string) *Recommendation {
	content = stripCodeFence(content)

	var rec Recommendation
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		r := fallbackRecommendation("Failed to parse response")
		return r
	}

	if !validRiskLevels[rec.RiskLevel] {
		rec.RiskLevel = "unknown"
	}
	if rec.Recommendations == nil {
		rec.Recommendations = []Action{}
	}
	if rec.Warnings == nil {
		rec.Warnings = []Warning{}
	}
	if rec.NextCheckTime == "" {
		rec.NextCheckTime = defaultNextCheck
	}
	return &rec
}

func fallbackRecommendation(errMsg string) *Recommendation {
	return &Recommendation{
		RiskLevel:       "unknown",
		Recommendations: []Action{},
		Warnings:        []Warning{},
		NextCheckTime:   defaultNextCheck,
		Error:           errMsg,
	}
}

// stripCodeFence removes a surrounding markdown fence if the model added one
// despite JSON mode.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	parts := strings.SplitN(content, "```", 3)
	if len(parts) < 2 {
		return content
	}
	content = parts[1]
	content = strings.TrimPrefix(content, "json")
	return strings.TrimSpace(content)
}
