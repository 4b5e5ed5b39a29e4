package reading

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Column name variants observed across the BMKG/IoT sheet exports. These are
// static configuration: the order is load-bearing (earlier variants win) and
// must not be reshuffled without checking every sheet format in circulation.
var (
	VariantsPM25 = []string{"PM2.5 density", "PM2.5 raw", "PM2.5", "pm25", "PM25", "pm2.5", "PM 2.5"}
	VariantsPM10 = []string{"PM10 density", "PM10 raw", "PM10", "pm10", "PM 10"}
	VariantsO3   = []string{"O3", "o3", "Ozone", "ozone"}
	VariantsNO2  = []string{"NO2", "no2", "NO 2", "Nitrogen Dioxide"}
	VariantsSO2  = []string{"SO2", "so2", "SO 2", "Sulfur Dioxide"}
	VariantsCO   = []string{"CO", "co", "Carbon Monoxide"}

	VariantsTemperature = []string{"Temperature", "temperature", "Temp", "temp", "Suhu", "suhu"}
	VariantsHumidity    = []string{"Humidity", "humidity", "Hum", "hum", "Kelembaban", "kelembaban"}
	VariantsPressure    = []string{"Pressure", "pressure", "Tekanan", "tekanan"}

	VariantsLocation   = []string{"Location", "location", "Lokasi", "lokasi", "Kota", "kota", "Device ID", "device_id"}
	VariantsTimestamp  = []string{"Timestamp", "timestamp", "Date", "date", "Tanggal", "tanggal", "Waktu", "waktu", "Time", "time"}
	VariantsAirQuality = []string{"Air quality level", "air_quality_level", "Air Quality Level", "Status", "status", "Kualitas Udara", "kualitas_udara"}
	VariantsDeviceID   = []string{"Device ID", "device_id", "Device", "device"}
	VariantsLatitude   = []string{"Latitude", "latitude", "Lat", "lat"}
	VariantsLongitude  = []string{"Longitude", "longitude", "Lng", "lng", "Lon", "lon"}
	VariantsRiskScore  = []string{"Risk score", "risk_score", "Risk Score", "Risiko", "risiko"}
)

// Expected physical maxima used to repair magnitudes when the upstream sheet
// drops a decimal separator ("56,82" read as 5682).
const (
	MaxPM25        = 500.0  // μg/m³
	MaxPM10        = 1000.0 // μg/m³
	MaxGas         = 500.0  // ppb
	MaxCO          = 50.0   // ppm
	MaxTemperature = 50.0   // °C
	MaxHumidity    = 100.0  // %
	MaxPressure    = 1100.0 // hPa
)

// DefaultLocation is assumed when a row carries no location column.
const DefaultLocation = "Bandung"

// CoerceNumeric converts a raw cell value to a float64.
//
// Rules, in order:
//  1. nil → no value.
//  2. Already numeric: if the magnitude exceeds expectedMax, try dividing by
//     100, then by 10, accepting the first result within expectedMax; when
//     neither fits, the original value is returned uncorrected. This repairs
//     sheets that lose a decimal separator; it is a heuristic and can
//     mis-correct a legitimately large value.
//  3. String: trim; a comma with no dot is a decimal separator (Indonesian
//     locale), a comma alongside a dot is a thousands separator and is
//     dropped; then parse. Unparseable strings yield no value, never an error.
func CoerceNumeric(value any, expectedMax float64) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return repairMagnitude(v, expectedMax), true
	case float32:
		return repairMagnitude(float64(v), expectedMax), true
	case int:
		return repairMagnitude(float64(v), expectedMax), true
	case int64:
		return repairMagnitude(float64(v), expectedMax), true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		hasComma := strings.Contains(s, ",")
		hasDot := strings.Contains(s, ".")
		switch {
		case hasComma && !hasDot:
			s = strings.ReplaceAll(s, ",", ".")
		case hasComma && hasDot:
			s = strings.ReplaceAll(s, ",", "")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// repairMagnitude applies the divide-by-100-then-10 decimal repair.
func repairMagnitude(v, expectedMax float64) float64 {
	if expectedMax <= 0 || math.Abs(v) <= expectedMax {
		return v
	}
	if c := v / 100.0; math.Abs(c) <= expectedMax {
		return c
	}
	if c := v / 10.0; math.Abs(c) <= expectedMax {
		return c
	}
	return v
}

// Observation is one normalized sensor sample.
type Observation struct {
	PM25        *float64 `json:"pm25"`
	PM10        *float64 `json:"pm10"`
	O3          *float64 `json:"o3,omitempty"`
	NO2         *float64 `json:"no2,omitempty"`
	SO2         *float64 `json:"so2,omitempty"`
	CO          *float64 `json:"co,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
	Location    string   `json:"location"`
	Timestamp   string   `json:"timestamp,omitempty"`
	AirQuality  string   `json:"air_quality,omitempty"`
	DeviceID    string   `json:"device_id,omitempty"`
}

// ErrNoRows is returned when a sheet holds no data rows.
var ErrNoRows = errors.New("no data rows")

// Latest returns the last row, which the upstream sheet appends to, so it is
// the newest sample.
func Latest(rows []Record) (Record, error) {
	if len(rows) == 0 {
		return Record{}, ErrNoRows
	}
	return rows[len(rows)-1], nil
}

// Normalize extracts and coerces the known fields of a raw row.
func Normalize(r Record) Observation {
	obs := Observation{
		PM25:        coerceField(r, VariantsPM25, MaxPM25),
		PM10:        coerceField(r, VariantsPM10, MaxPM10),
		O3:          coerceField(r, VariantsO3, MaxGas),
		NO2:         coerceField(r, VariantsNO2, MaxGas),
		SO2:         coerceField(r, VariantsSO2, MaxGas),
		CO:          coerceField(r, VariantsCO, MaxCO),
		Temperature: coerceField(r, VariantsTemperature, MaxTemperature),
		Humidity:    coerceField(r, VariantsHumidity, MaxHumidity),
		Pressure:    coerceField(r, VariantsPressure, MaxPressure),
		Location:    ExtractString(r, VariantsLocation, DefaultLocation),
		Timestamp:   ExtractString(r, VariantsTimestamp, ""),
		AirQuality:  ExtractString(r, VariantsAirQuality, ""),
		DeviceID:    ExtractString(r, VariantsDeviceID, ""),
	}
	return obs
}

// Valid reports whether the observation carries the minimum required fields.
func (o Observation) Valid() bool {
	return o.PM25 != nil && o.PM10 != nil
}

func coerceField(r Record, variants []string, expectedMax float64) *float64 {
	v := Extract(r, variants, nil)
	f, ok := CoerceNumeric(v, expectedMax)
	if !ok {
		return nil
	}
	return &f
}
