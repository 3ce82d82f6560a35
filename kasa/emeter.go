package kasa

import (
	"encoding/json"
	"math"
)

// Firmware generations report realtime readings either in SI units
// (current, voltage, power, total) or in milli-units (current_ma,
// voltage_mv, power_mw, total_wh). Both forms are always exposed.
var emeterPairs = []struct {
	si, milli string
}{
	{"current", "current_ma"},
	{"voltage", "voltage_mv"},
	{"power", "power_mw"},
	{"total", "total_wh"},
}

// Emeter holds one emeter.get_realtime reading with both unit schemas filled in.
type Emeter struct {
	Current float64 `json:"current"`
	Voltage float64 `json:"voltage"`
	Power   float64 `json:"power"`
	Total   float64 `json:"total"`

	CurrentMA float64 `json:"current_ma"`
	VoltageMV float64 `json:"voltage_mv"`
	PowerMW   float64 `json:"power_mw"`
	TotalWH   float64 `json:"total_wh"`

	Raw Value `json:"-"`
}

func (e Emeter) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Raw)
}

// NormalizeEmeter adds whichever unit counterpart is missing. Fields the
// firmware sent are left untouched.
func NormalizeEmeter(res map[string]any) map[string]any {
	out := make(map[string]any, len(res)+len(emeterPairs))
	for k, v := range res {
		out[k] = v
	}

	for _, p := range emeterPairs {
		si, hasSI := res[p.si].(float64)
		milli, hasMilli := res[p.milli].(float64)

		switch {
		case hasSI && !hasMilli:
			out[p.milli] = round(si * 1000)
		case hasMilli && !hasSI:
			out[p.si] = round(milli / 1000)
		}
	}

	return out
}

// Strips float noise such as 27.566000000000003 from the derived values.
func round(f float64) float64 {
	const scale = 1e9
	return math.Round(f*scale) / scale
}

func ParseEmeter(resp Value) (*Emeter, error) {
	cmd := GetRealtime()
	res, err := Result(resp, cmd)
	if err != nil {
		return nil, err
	}

	obj, _ := res.Object()
	for _, p := range emeterPairs {
		_, hasSI := obj[p.si]
		_, hasMilli := obj[p.milli]
		if !hasSI && !hasMilli {
			return nil, &ResponseError{Kind: MissingField, Module: cmd.Module, Action: cmd.Action, Field: p.si}
		}
	}

	normalized := NewValue(NormalizeEmeter(obj))

	var e Emeter
	if err := decodeResult(normalized, cmd, &e); err != nil {
		return nil, err
	}
	e.Raw = normalized

	return &e, nil
}
