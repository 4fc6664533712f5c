package service

import (
	"math"
	"testing"

	"air_monitor/internal/models"
)

func TestClassify_Boundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind models.SensorKind
		v    float64
		want models.Status
	}{
		{models.KindTemperature, 59, models.StatusGood},
		{models.KindTemperature, 77, models.StatusGood},
		{models.KindTemperature, 58.999, models.StatusModerate},
		{models.KindTemperature, 50, models.StatusModerate},
		{models.KindTemperature, 86, models.StatusModerate},
		{models.KindTemperature, 77.001, models.StatusModerate},
		{models.KindTemperature, 49.999, models.StatusPoor},
		{models.KindTemperature, 86.001, models.StatusPoor},
		{models.KindTemperature, 90, models.StatusPoor},

		{models.KindHumidity, 0, models.StatusGood},
		{models.KindHumidity, 19.999, models.StatusGood},
		{models.KindHumidity, 20, models.StatusModerate},
		{models.KindHumidity, 40, models.StatusModerate},
		{models.KindHumidity, 40.001, models.StatusPoor},

		{models.KindGas, 199.999, models.StatusGood},
		{models.KindGas, 200, models.StatusModerate},
		{models.KindGas, 400, models.StatusModerate},
		{models.KindGas, 400.001, models.StatusPoor},
	}

	for _, c := range cases {
		v := c.v
		if got := Classify(c.kind, &v); got != c.want {
			t.Errorf("Classify(%s, %v) = %s; want %s", c.kind, c.v, got, c.want)
		}
	}
}

func TestClassify_AbsentAndUnknown(t *testing.T) {
	t.Parallel()

	for _, kind := range models.SensorKinds {
		if got := Classify(kind, nil); got != models.StatusUnclassified {
			t.Errorf("%s absent: got %s", kind, got)
		}
	}
	if got := Classify("Pressure", models.Float(1)); got != models.StatusUnclassified {
		t.Errorf("unknown kind: got %s", got)
	}
}

func TestClassify_NaNIsPoor(t *testing.T) {
	t.Parallel()

	for _, kind := range models.SensorKinds {
		if got := Classify(kind, models.Float(math.NaN())); got != models.StatusPoor {
			t.Errorf("%s NaN: got %s", kind, got)
		}
	}
}

func TestClassifyAll_IsPure(t *testing.T) {
	t.Parallel()

	snap := models.Snapshot{Temperature: models.Float(70), Gas: models.Float(450)}
	first := ClassifyAll(snap)
	second := ClassifyAll(snap)

	want := models.Statuses{
		models.KindTemperature: models.StatusGood,
		models.KindHumidity:    models.StatusUnclassified,
		models.KindGas:         models.StatusPoor,
	}
	for kind, st := range want {
		if first[kind] != st || second[kind] != st {
			t.Fatalf("%s: got %s/%s; want %s", kind, first[kind], second[kind], st)
		}
	}
}
