package reading

import (
	"encoding/json"
	"testing"
)

func record(pairs ...any) Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i].(string), pairs[i+1])
	}
	return r
}

func TestExtractCaseInsensitive(t *testing.T) {
	r := record("PM2.5 Density", "12.5", "Suhu", "28,4")

	got := Extract(r, VariantsPM25, nil)
	if got != "12.5" {
		t.Errorf("expected 12.5, got %v", got)
	}

	if got := Extract(r, []string{"missing"}, "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %v", got)
	}
}

// The variant list is iterated outermost: when a record's columns collide
// case-insensitively with several variants, the earliest-listed variant wins
// regardless of column order. Reordering a variant table changes results.
func TestExtractVariantPriority(t *testing.T) {
	r := record("Lat", "1.2", "LATITUDE", "3.4")

	got := Extract(r, []string{"Latitude", "lat"}, nil)
	if got != "3.4" {
		t.Errorf("earlier variant must win: expected 3.4, got %v", got)
	}

	// Swapped variant order flips the answer.
	got = Extract(r, []string{"lat", "Latitude"}, nil)
	if got != "1.2" {
		t.Errorf("expected 1.2 with lat listed first, got %v", got)
	}
}

func TestExtractColumnOrderWithinVariant(t *testing.T) {
	r := record("temp", "20", "TEMP", "30")

	// Both columns match the same variant; the first column in source order wins.
	got := Extract(r, []string{"Temp"}, nil)
	if got != "20" {
		t.Errorf("expected first matching column, got %v", got)
	}
}

func TestExtractString(t *testing.T) {
	r := record("Lokasi", "Dago", "Status", "  ")

	if got := ExtractString(r, VariantsLocation, DefaultLocation); got != "Dago" {
		t.Errorf("expected Dago, got %q", got)
	}
	if got := ExtractString(r, VariantsAirQuality, "unknown"); got != "unknown" {
		t.Errorf("blank value should fall back, got %q", got)
	}
	if got := ExtractString(record(), VariantsLocation, DefaultLocation); got != DefaultLocation {
		t.Errorf("expected default location, got %q", got)
	}
}

func TestCoerceNumeric(t *testing.T) {
	cases := []struct {
		name string
		in   any
		max  float64
		want float64
		ok   bool
	}{
		{"nil", nil, 500, 0, false},
		{"plain float", 56.82, 500, 56.82, true},
		{"comma decimal", "56,82", 500, 56.82, true},
		{"comma thousands", "1,234.5", 5000, 1234.5, true},
		{"dot decimal", "28.4", 50, 28.4, true},
		{"whitespace", "  7,5  ", 100, 7.5, true},
		{"divide by 100", 5682.0, 500, 56.82, true},
		{"divide by 10", 652.0, 100, 65.2, true},
		{"int input", 5682, 500, 56.82, true},
		{"no repair fits", 999999.0, 500, 999999, true},
		{"under max untouched", 400.0, 500, 400, true},
		{"garbage string", "n/a", 500, 0, false},
		{"empty string", "", 500, 0, false},
		{"bool", true, 500, 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := CoerceNumeric(c.in, c.max)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	r := record(
		"PM2.5 density", "56,82",
		"PM10 density", 8123, // decimal dropped upstream, /100 puts it in range
		"Suhu", "28,4",
		"Kelembaban", 75,
		"Lokasi", "Cihampelas",
		"Air quality level", "Sedang",
		"Device ID", "bdg-007",
	)

	obs := Normalize(r)

	if obs.PM25 == nil || *obs.PM25 != 56.82 {
		t.Errorf("pm25 = %v, want 56.82", obs.PM25)
	}
	if obs.PM10 == nil || *obs.PM10 != 81.23 {
		t.Errorf("pm10 = %v, want 81.23", obs.PM10)
	}
	if obs.Temperature == nil || *obs.Temperature != 28.4 {
		t.Errorf("temperature = %v, want 28.4", obs.Temperature)
	}
	if obs.Humidity == nil || *obs.Humidity != 75 {
		t.Errorf("humidity = %v, want 75", obs.Humidity)
	}
	if obs.Location != "Cihampelas" {
		t.Errorf("location = %q", obs.Location)
	}
	if obs.AirQuality != "Sedang" {
		t.Errorf("air quality = %q", obs.AirQuality)
	}
	if obs.DeviceID != "bdg-007" {
		t.Errorf("device id = %q", obs.DeviceID)
	}
	if !obs.Valid() {
		t.Error("expected valid observation")
	}
}

func TestNormalizeMissingRequired(t *testing.T) {
	obs := Normalize(record("Suhu", "25"))
	if obs.Valid() {
		t.Error("observation without pm25/pm10 must be invalid")
	}
	if obs.Location != DefaultLocation {
		t.Errorf("expected default location, got %q", obs.Location)
	}
}

func TestLatest(t *testing.T) {
	if _, err := Latest(nil); err == nil {
		t.Error("expected error on empty rows")
	}

	rows := []Record{record("PM2.5", 10), record("PM2.5", 20)}
	last, err := Latest(rows)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := last.Value("PM2.5"); v != 20 {
		t.Errorf("expected newest row, got %v", v)
	}
}

func TestRecordMarshalJSONOrder(t *testing.T) {
	r := record("B col", 1, "A col", "x")

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"B col":1,"A col":"x"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
