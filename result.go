package musicmind

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Result is the JSON object returned by the remote service, passed
// through as-is. Its shape is owned by the deployment; only "analysis"
// is expected on every content operation. Numbers are json.Number so
// re-encoding keeps the remote's literal text.
type Result map[string]any

// ResultView is a typed view over the well-known fields. Every field
// is optional.
type ResultView struct {
	Analysis        string   `mapstructure:"analysis" json:"analysis,omitempty"`
	Lyrics          string   `mapstructure:"lyrics" json:"lyrics,omitempty"`
	TempoBPM        *float64 `mapstructure:"tempo_bpm" json:"tempo_bpm,omitempty"`
	DurationSeconds *float64 `mapstructure:"duration_seconds" json:"duration_seconds,omitempty"`
	VibeCheck       bool     `mapstructure:"vibe_check" json:"vibe_check,omitempty"`
	Error           string   `mapstructure:"error" json:"error,omitempty"`

	// Health payload fields.
	Status string `mapstructure:"status" json:"status,omitempty"`
	Model  string `mapstructure:"model" json:"model,omitempty"`
	Cached bool   `mapstructure:"cached" json:"cached,omitempty"`
}

// Decode decodes the result into v, typically a pointer to a struct
// with mapstructure tags. Decoding is weakly typed, so "128" decodes
// into a float64 and true into a string.
func (r Result) Decode(v any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(r))
}

// View returns the well-known fields. Fields with an unexpected shape
// are left at their zero value.
func (r Result) View() ResultView {
	var v ResultView
	_ = r.Decode(&v)
	return v
}

// Analysis returns the "analysis" text, or "" when absent.
func (r Result) Analysis() string {
	s, _ := r["analysis"].(string)
	return s
}

// Lyrics returns the "lyrics" text, or "" when absent.
func (r Result) Lyrics() string {
	s, _ := r["lyrics"].(string)
	return s
}

// TempoBPM returns "tempo_bpm" and whether it was present and numeric.
func (r Result) TempoBPM() (float64, bool) {
	return r.number("tempo_bpm")
}

func (r Result) number(key string) (float64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// JSON returns the result re-encoded as indented JSON.
func (r Result) JSON() ([]byte, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.MarshalIndent(map[string]any(r), "", "  ")
}
