package service

import (
	"fmt"
	"strings"

	"air_monitor/internal/models"
)

// Physically plausible limits; anything outside means a faulty sensor.
const (
	TempAbnormalMinF = -50.0
	TempAbnormalMaxF = 150.0

	HumidityAbnormalMin = 0.0
	HumidityAbnormalMax = 100.0

	GasAbnormalMin = 0.0
)

// AbnormalSet lists the kinds with impossible readings, in SensorKinds order.
type AbnormalSet []models.SensorKind

func (a AbnormalSet) Empty() bool { return len(a) == 0 }

func (a AbnormalSet) Contains(kind models.SensorKind) bool {
	for _, k := range a {
		if k == kind {
			return true
		}
	}
	return false
}

// ClassifyAbnormal screens one snapshot. Absent readings are never abnormal.
func ClassifyAbnormal(s models.Snapshot) AbnormalSet {
	var out AbnormalSet
	for _, kind := range models.SensorKinds {
		if v := s.Value(kind); v != nil && isAbnormal(kind, *v) {
			out = append(out, kind)
		}
	}
	return out
}

func isAbnormal(kind models.SensorKind, v float64) bool {
	switch kind {
	case models.KindTemperature:
		return v < TempAbnormalMinF || v > TempAbnormalMaxF
	case models.KindHumidity:
		return v < HumidityAbnormalMin || v > HumidityAbnormalMax
	case models.KindGas:
		return v < GasAbnormalMin
	default:
		return false
	}
}

// FaultMessage is the combined notification text for an abnormal snapshot.
func FaultMessage(a AbnormalSet) string {
	return fmt.Sprintf("Abnormal reading from %s: please check sensor and reset device.", joinKinds(a))
}

func joinKinds(kinds []models.SensorKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
