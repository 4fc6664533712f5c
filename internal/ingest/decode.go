package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"air_monitor/internal/models"
)

// Field names of the source schema, kept verbatim.
const (
	FieldTemperature = "Temperature"
	FieldHumidity    = "Humidity Sensor"
	FieldGas         = "Gas Sensor"
)

// DefaultPath is the node (topic) the sensors write to.
const DefaultPath = "Sensors"

var ErrMalformedSnapshot = errors.New("snapshot payload is not a JSON object")

// DecodeSnapshot parses a source payload. Only a payload that is not a JSON
// object is an error; missing, null or non-numeric fields come back absent.
func DecodeSnapshot(payload []byte, receivedAt time.Time) (models.Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	return models.Snapshot{
		Temperature: decodeValue(raw[FieldTemperature]),
		Humidity:    decodeValue(raw[FieldHumidity]),
		Gas:         decodeValue(raw[FieldGas]),
		ReceivedAt:  receivedAt,
	}, nil
}

var jsonNull = []byte("null")

// decodeValue accepts a JSON number or a numeric string.
func decodeValue(b json.RawMessage) *float64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// EncodeSnapshot is the inverse of DecodeSnapshot; absent readings are omitted.
func EncodeSnapshot(s models.Snapshot) ([]byte, error) {
	out := make(map[string]float64, 3)
	if s.Temperature != nil {
		out[FieldTemperature] = *s.Temperature
	}
	if s.Humidity != nil {
		out[FieldHumidity] = *s.Humidity
	}
	if s.Gas != nil {
		out[FieldGas] = *s.Gas
	}
	return json.Marshal(out)
}

// ResetCommand is sent to the device when a scheduled reset fires.
type ResetCommand struct {
	Command     string    `json:"command"`
	RequestedAt time.Time `json:"requestedAt"`
}

func newResetPayload(now time.Time) ([]byte, error) {
	return json.Marshal(ResetCommand{Command: "reset", RequestedAt: now.UTC()})
}
