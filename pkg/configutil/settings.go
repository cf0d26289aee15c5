package configutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/mitchellh/mapstructure"
)

// Load validates input against schema and decodes it into out.
func Load(input map[string]any, schema Schema, out any) error {
	if err := ValidateSettings(input, schema); err != nil {
		return err
	}
	return DecodeSettings(input, out)
}

// DecodeSettings decodes a free-form settings map into a typed struct.
// Durations may be given as strings such as "250ms".
func DecodeSettings(input map[string]any, out any) error {
	if len(input) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonConfigInvalid)
	}
	return nil
}

// RequireString ensures a value is present for a required config field.
func RequireString(value, path string) error {
	if strings.TrimSpace(value) == "" {
		return errorsx.New(errorsx.ReasonConfigInvalid, fmt.Sprintf("%s is required", path))
	}
	return nil
}

// RequirePositive ensures a duration field is greater than zero.
func RequirePositive(value time.Duration, path string) error {
	if value <= 0 {
		return errorsx.New(errorsx.ReasonConfigInvalid, fmt.Sprintf("%s must be positive, got %s", path, value))
	}
	return nil
}

// IntValue returns fallback when value is nil.
func IntValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func normalizeKey(value string) string {
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", "")
	return strings.ReplaceAll(value, "-", "")
}
