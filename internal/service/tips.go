package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bandungair/udara/internal/adapter/otel"
	"github.com/bandungair/udara/internal/domain/user"
	"github.com/bandungair/udara/internal/port/cache"
)

// Tip is one practical health tip shown next to the heatmap.
type Tip struct {
	Category string `json:"category"`
	Tip      string `json:"tip"`
	Priority string `json:"priority"`
}

// Tips is the tip panel content for one pollution condition.
type Tips struct {
	Title        string `json:"title"`
	Explanation  string `json:"explanation"`
	TipList      []Tip  `json:"tips"`
	HealthImpact string `json:"health_impact"`
	Prevention   string `json:"prevention"`
}

// TipsRequest describes the conditions tips are requested for.
type TipsRequest struct {
	PM25       *float64 `json:"pm2_5,omitempty"`
	PM10       *float64 `json:"pm10,omitempty"`
	AirQuality string   `json:"air_quality,omitempty"`
	RiskLevel  string   `json:"risk_level,omitempty"`
	Location   string   `json:"location,omitempty"`
	Language   string   `json:"language,omitempty"`
}

// TipsService generates heatmap tips with the LLM. Answers are cached per
// (risk level, language) so repeated map interactions stay cheap, and LLM
// failures fall back to static tips.
type TipsService struct {
	llm     LLMClient
	cache   cache.Cache
	ttl     time.Duration
	metrics *otel.Metrics
	log     *slog.Logger
}

// NewTipsService creates a TipsService. ttl bounds how long a generated tip
// set is reused.
func NewTipsService(llm LLMClient, c cache.Cache, ttl time.Duration, metrics *otel.Metrics, log *slog.Logger) *TipsService {
	return &TipsService{
		llm:     llm,
		cache:   c,
		ttl:     ttl,
		metrics: metrics,
		log:     log,
	}
}

// Generate returns tips for the requested conditions.
func (s *TipsService) Generate(ctx context.Context, req TipsRequest) (*Tips, error) {
	lang := req.Language
	if !user.ValidLanguage(lang) {
		lang = user.LangIndonesian
	}
	level := normalizeRiskLevel(req.RiskLevel)

	key := "tips/" + level + "/" + lang
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var tips Tips
		if err := json.Unmarshal(data, &tips); err == nil {
			return &tips, nil
		}
	}

	s.metrics.AddLLMRequest(ctx)
	content, err := s.llm.CompleteJSON(ctx, tipsSystemPrompt(lang), buildTipsPrompt(req, level, lang), 0.7)
	if err != nil {
		s.metrics.AddLLMFailure(ctx)
		s.log.WarnContext(ctx, "tips completion failed, using fallback", "error", err, "risk_level", level)
		return fallbackTips(level, lang), nil
	}

	tips, ok := parseTips(content, lang)
	if !ok {
		s.metrics.AddLLMFailure(ctx)
		return fallbackTips(level, lang), nil
	}

	if data, err := json.Marshal(tips); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.log.WarnContext(ctx, "tips cache set failed", "error", err)
		}
	}
	return tips, nil
}

func normalizeRiskLevel(level string) string {
	switch strings.ToLower(level) {
	case "high", "critical":
		return "high"
	case "moderate", "medium":
		return "moderate"
	default:
		return "low"
	}
}

func tipsSystemPrompt(lang string) string {
	switch lang {
	case user.LangEnglish:
		return `You are an experienced environmental health and air quality expert.
Your task is to provide easy-to-understand explanations and practical tips about air pollution based on PM2.5 and PM10 data for display on a heatmap dashboard.

Output JSON with format:
{
  "title": "Explanation title",
  "explanation": "Brief explanation about current air pollution condition",
  "tips": [{"category": "Health|Activity|Protection", "tip": "Practical tip that can be done", "priority": "high|medium|low"}],
  "health_impact": "Possible health impacts",
  "prevention": "Recommended prevention methods"
}

Use easy-to-understand English, informative, and actionable. Focus on tips relevant to the pollution level displayed.`
	case user.LangSundanese:
		return `Anjeun ahli kaséhatan lingkungan sareng kualitas udara anu berpengalaman.
Tugas anjeun nyaéta masihan penjelasan anu gampang dipahami sareng tips praktis ngeunaan polusi udara dumasar kana data PM2.5 sareng PM10 pikeun ditampilkeun dina heatmap dashboard.

Output JSON kalayan format:
{
  "title": "Judul penjelasan",
  "explanation": "Penjelasan singkat ngeunaan kaayaan polusi udara ayeuna",
  "tips": [{"category": "Kaséhatan|Aktivitas|Perlindungan", "tip": "Tips praktis anu tiasa dilakukeun", "priority": "high|medium|low"}],
  "health_impact": "Dampak kaséhatan anu mungkin lumangsung",
  "prevention": "Cara pencegahan anu disarankeun"
}

Gunakeun basa Sunda anu gampang dipahami, informatif, sareng actionable.`
	default:
		return `Anda adalah ahli kesehatan lingkungan dan kualitas udara yang berpengalaman.
Tugas Anda adalah memberikan penjelasan yang mudah dipahami dan tips praktis tentang polusi udara berdasarkan data PM2.5 dan PM10 untuk ditampilkan di heatmap dashboard.

Output JSON dengan format:
{
  "title": "Judul penjelasan",
  "explanation": "Penjelasan singkat tentang kondisi polusi udara saat ini",
  "tips": [{"category": "Kesehatan|Aktivitas|Perlindungan", "tip": "Tips praktis yang bisa dilakukan", "priority": "high|medium|low"}],
  "health_impact": "Dampak kesehatan yang mungkin terjadi",
  "prevention": "Cara pencegahan yang disarankan"
}

Gunakan bahasa Indonesia yang mudah dipahami, informatif, dan actionable. Fokus pada tips yang relevan dengan tingkat polusi yang ditampilkan.`
	}
}

func buildTipsPrompt(req TipsRequest, level, lang string) string {
	var b strings.Builder
	b.WriteString("DATA KUALITAS UDARA:\n")
	fmt.Fprintf(&b, "- PM2.5: %s μg/m³\n", fmtValue(req.PM25))
	fmt.Fprintf(&b, "- PM10: %s μg/m³\n", fmtValue(req.PM10))
	fmt.Fprintf(&b, "- Status Kualitas Udara: %s\n", orNA(req.AirQuality))
	fmt.Fprintf(&b, "- Level Risiko: %s\n", strings.ToUpper(level))
	fmt.Fprintf(&b, "- Lokasi: %s\n\n", orNA(req.Location))

	switch lang {
	case user.LangEnglish:
		b.WriteString(`Based on the above data, provide:
1. Brief explanation about current air pollution condition at this location
2. Practical tips that can be done to protect health (3-5 tips)
3. Possible health impacts if exposed to this pollution
4. Recommended prevention methods

Focus on actionable tips that are easy to understand for the general public.`)
	case user.LangSundanese:
		b.WriteString(`Dumasar kana data di luhur, masihan:
1. Penjelasan singkat ngeunaan kaayaan polusi udara ayeuna di lokasi éta
2. Tips praktis anu tiasa dilakukeun pikeun ngajaga kaséhatan (3-5 tips)
3. Dampak kaséhatan anu mungkin lumangsung
4. Cara pencegahan anu disarankeun`)
	default:
		b.WriteString(`Berdasarkan data di atas, berikan:
1. Penjelasan singkat tentang kondisi polusi udara saat ini di lokasi tersebut
2. Tips praktis yang bisa dilakukan untuk melindungi kesehatan (3-5 tips)
3. Dampak kesehatan yang mungkin terjadi jika terpapar polusi ini
4. Cara pencegahan yang disarankan

Fokus pada tips yang actionable dan mudah dipahami oleh masyarakat umum.`)
	}
	return b.String()
}

func parseTips(content, lang string) (*Tips, bool) {
	var tips Tips
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &tips); err != nil {
		return nil, false
	}

	if tips.Title == "" {
		tips.Title = defaultTipsTitle(lang)
	}
	if tips.TipList == nil {
		tips.TipList = []Tip{}
	}
	for i := range tips.TipList {
		if tips.TipList[i].Category == "" {
			if lang == user.LangEnglish {
				tips.TipList[i].Category = "Health"
			} else {
				tips.TipList[i].Category = "Kesehatan"
			}
		}
		if tips.TipList[i].Priority == "" {
			tips.TipList[i].Priority = "medium"
		}
	}
	return &tips, true
}

func defaultTipsTitle(lang string) string {
	switch lang {
	case user.LangEnglish:
		return "Health & Prevention Tips"
	case user.LangSundanese:
		return "Tips Kaséhatan & Pencegahan"
	default:
		return "Tips Kesehatan & Pencegahan"
	}
}

func fallbackTips(level, lang string) *Tips {
	switch lang {
	case user.LangEnglish:
		return fallbackTipsEN(level)
	case user.LangSundanese:
		return fallbackTipsSU()
	default:
		return fallbackTipsID(level)
	}
}

func fallbackTipsID(level string) *Tips {
	t := &Tips{Title: "Tips Kesehatan & Pencegahan"}
	switch level {
	case "high":
		t.TipList = []Tip{
			{Category: "Kesehatan", Tip: "Gunakan masker N95 saat berada di luar ruangan", Priority: "high"},
			{Category: "Aktivitas", Tip: "Hindari aktivitas fisik berat di luar ruangan", Priority: "high"},
			{Category: "Perlindungan", Tip: "Tutup jendela dan gunakan air purifier di dalam ruangan", Priority: "medium"},
			{Category: "Kesehatan", Tip: "Minum air putih lebih banyak untuk membantu detoksifikasi", Priority: "medium"},
		}
		t.HealthImpact = "Paparan polusi udara tinggi dapat menyebabkan iritasi mata, batuk, sesak napas, memperburuk kondisi pernapasan seperti asma, dan meningkatkan risiko penyakit jantung."
		t.Prevention = "Hindari aktivitas di luar ruangan saat polusi tinggi, gunakan masker N95, pastikan sirkulasi udara di dalam ruangan baik dengan air purifier, dan konsultasi dokter jika mengalami gejala pernapasan."
		t.Explanation = "PM2.5 adalah partikel halus di udara yang dapat masuk ke paru-paru dan menyebabkan masalah kesehatan. Kondisi saat ini menunjukkan tingkat polusi yang tinggi."
	case "moderate":
		t.TipList = []Tip{
			{Category: "Kesehatan", Tip: "Gunakan masker saat berada di luar ruangan untuk waktu lama", Priority: "medium"},
			{Category: "Aktivitas", Tip: "Batasi aktivitas fisik di luar ruangan, terutama untuk kelompok sensitif", Priority: "medium"},
			{Category: "Perlindungan", Tip: "Pastikan ventilasi ruangan baik", Priority: "low"},
		}
		t.HealthImpact = "Paparan polusi udara sedang dapat menyebabkan iritasi ringan pada mata dan saluran pernapasan, terutama pada kelompok sensitif seperti anak-anak, lansia, dan penderita asma."
		t.Prevention = "Kelompok sensitif perlu berhati-hati. Gunakan masker saat beraktivitas di luar, batasi waktu di luar ruangan, dan pastikan ventilasi dalam ruangan baik."
		t.Explanation = "PM2.5 adalah partikel halus di udara yang dapat masuk ke paru-paru dan menyebabkan masalah kesehatan. Kondisi saat ini menunjukkan tingkat polusi yang sedang."
	default:
		t.TipList = []Tip{
			{Category: "Kesehatan", Tip: "Kualitas udara baik, tetap jaga kesehatan dengan pola hidup sehat", Priority: "low"},
			{Category: "Aktivitas", Tip: "Aman untuk melakukan aktivitas di luar ruangan", Priority: "low"},
		}
		t.HealthImpact = "Kualitas udara baik, risiko kesehatan minimal."
		t.Prevention = "Pertahankan kualitas udara dengan mengurangi penggunaan kendaraan pribadi dan menjaga lingkungan tetap bersih."
		t.Explanation = "PM2.5 adalah partikel halus di udara yang dapat masuk ke paru-paru dan menyebabkan masalah kesehatan. Kondisi saat ini menunjukkan tingkat polusi yang rendah."
	}
	return t
}

func fallbackTipsEN(level string) *Tips {
	t := &Tips{Title: "Health & Prevention Tips"}
	switch level {
	case "high":
		t.TipList = []Tip{
			{Category: "Health", Tip: "Use N95 mask when outdoors", Priority: "high"},
			{Category: "Activity", Tip: "Avoid heavy physical activity outdoors", Priority: "high"},
			{Category: "Protection", Tip: "Close windows and use air purifier indoors", Priority: "medium"},
		}
		t.HealthImpact = "High air pollution exposure can cause eye irritation, cough, shortness of breath, worsen respiratory conditions like asthma, and increase heart disease risk."
		t.Prevention = "Avoid outdoor activities when pollution is high, use N95 masks, ensure good indoor air circulation with air purifiers, and consult a doctor if experiencing respiratory symptoms."
		t.Explanation = "PM2.5 are fine particles in the air that can enter the lungs and cause health problems. Current conditions show high pollution levels."
	case "moderate":
		t.TipList = []Tip{
			{Category: "Health", Tip: "Use mask when outdoors for extended periods", Priority: "medium"},
			{Category: "Activity", Tip: "Limit outdoor physical activity, especially for sensitive groups", Priority: "medium"},
		}
		t.HealthImpact = "Moderate air pollution exposure can cause mild irritation to eyes and respiratory tract, especially in sensitive groups like children, elderly, and asthma patients."
		t.Prevention = "Sensitive groups should be cautious. Use masks when outdoors, limit outdoor time, and ensure good indoor ventilation."
		t.Explanation = "PM2.5 are fine particles in the air that can enter the lungs and cause health problems. Current conditions show moderate pollution levels."
	default:
		t.TipList = []Tip{
			{Category: "Health", Tip: "Air quality is good, maintain health with healthy lifestyle", Priority: "low"},
		}
		t.HealthImpact = "Air quality is good, minimal health risk."
		t.Prevention = "Maintain air quality by reducing private vehicle use and keeping the environment clean."
		t.Explanation = "PM2.5 are fine particles in the air that can enter the lungs and cause health problems. Current conditions show low pollution levels."
	}
	return t
}

func fallbackTipsSU() *Tips {
	return &Tips{
		Title:       "Tips Kaséhatan & Pencegahan",
		Explanation: "PM2.5 nyaéta partikel halus di udara anu tiasa asup kana paru-paru sareng nyababkeun masalah kaséhatan. Beuki luhur nilaina, beuki bahaya pikeun kaséhatan.",
		TipList: []Tip{
			{Category: "Kaséhatan", Tip: "Gunakeun masker N95 nalika di luar ruangan", Priority: "high"},
			{Category: "Aktivitas", Tip: "Hindari aktivitas fisik beurat di luar ruangan", Priority: "medium"},
			{Category: "Perlindungan", Tip: "Tutup jandela sareng gunakeun air purifier di jero ruangan", Priority: "medium"},
		},
		HealthImpact: "Paparan polusi udara tiasa nyababkeun iritasi panon, batuk, sesak napas, sareng ngorakeun kaayaan pernapasan.",
		Prevention:   "Hindari aktivitas di luar ruangan nalika polusi luhur, gunakeun masker, sareng pastikeun sirkulasi udara di jero ruangan saé.",
	}
}
