package service

import "air_monitor/internal/models"

// Band edges. Temperature is in °F, humidity in %, gas in ppm.
const (
	TempGoodMinF     = 59.0
	TempGoodMaxF     = 77.0
	TempModerateMinF = 50.0
	TempModerateMaxF = 86.0

	HumidityGoodBelow   = 20.0
	HumidityModerateMax = 40.0

	GasGoodBelow   = 200.0
	GasModerateMax = 400.0
)

// Classify maps a reading to its band. A nil value is unclassified; every
// real number lands in exactly one of good, moderate or poor.
func Classify(kind models.SensorKind, value *float64) models.Status {
	if value == nil {
		return models.StatusUnclassified
	}
	v := *value
	switch kind {
	case models.KindTemperature:
		return classifyTemperature(v)
	case models.KindHumidity:
		return classifyHumidity(v)
	case models.KindGas:
		return classifyGas(v)
	default:
		return models.StatusUnclassified
	}
}

// ClassifyAll classifies every kind of the snapshot.
func ClassifyAll(s models.Snapshot) models.Statuses {
	out := make(models.Statuses, len(models.SensorKinds))
	for _, kind := range models.SensorKinds {
		out[kind] = Classify(kind, s.Value(kind))
	}
	return out
}

func classifyTemperature(v float64) models.Status {
	switch {
	case v >= TempGoodMinF && v <= TempGoodMaxF:
		return models.StatusGood
	case (v >= TempModerateMinF && v < TempGoodMinF) || (v > TempGoodMaxF && v <= TempModerateMaxF):
		return models.StatusModerate
	default:
		return models.StatusPoor
	}
}

func classifyHumidity(v float64) models.Status {
	switch {
	case v < HumidityGoodBelow:
		return models.StatusGood
	case v >= HumidityGoodBelow && v <= HumidityModerateMax:
		return models.StatusModerate
	default:
		return models.StatusPoor
	}
}

func classifyGas(v float64) models.Status {
	switch {
	case v < GasGoodBelow:
		return models.StatusGood
	case v >= GasGoodBelow && v <= GasModerateMax:
		return models.StatusModerate
	default:
		return models.StatusPoor
	}
}
