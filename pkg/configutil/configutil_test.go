package configutil

import (
	"testing"
	"time"

	"github.com/harunnryd/halo/pkg/errorsx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSettingsReportsMissingAndUnknown(t *testing.T) {
	schema := Schema{Required: []string{"path"}, Optional: []string{"level"}}

	err := ValidateSettings(map[string]any{"Path": " ", "colour": "red"}, schema)
	require.Error(t, err)
	assert.Equal(t, "missing: path; unknown: colour", err.Error())
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonConfigInvalid))

	assert.NoError(t, ValidateSettings(map[string]any{"PATH": "/tmp", "Level": "debug"}, schema))
	assert.NoError(t, ValidateSettings(map[string]any{"path": "x", "other": 1}, Schema{Required: []string{"path"}, AllowUnknown: true}))
}

func TestLoadDecodesNormalizedKeys(t *testing.T) {
	var out struct {
		PreviewChars int           `mapstructure:"preview_chars"`
		Delay        time.Duration `mapstructure:"delay"`
		Plain        bool          `mapstructure:"plain"`
	}
	schema := Schema{Optional: []string{"preview_chars", "delay", "plain"}}

	err := Load(map[string]any{"preview-chars": "12", "delay": "250ms", "Plain": true}, schema, &out)
	require.NoError(t, err)
	assert.Equal(t, 12, out.PreviewChars)
	assert.Equal(t, 250*time.Millisecond, out.Delay)
	assert.True(t, out.Plain)
}

func TestLoadRejectsBadTypes(t *testing.T) {
	var out struct {
		Delay time.Duration `mapstructure:"delay"`
	}
	err := Load(map[string]any{"delay": "soon"}, Schema{Optional: []string{"delay"}}, &out)
	require.Error(t, err)
	assert.Equal(t, errorsx.ReasonConfigInvalid, errorsx.Reason(err))
}

func TestRequireHelpers(t *testing.T) {
	assert.Error(t, RequireString("  ", "hooks.provider"))
	assert.NoError(t, RequireString("log", "hooks.provider"))
	assert.EqualError(t, RequirePositive(0, "budget.listen"), "budget.listen must be positive, got 0s")
	assert.NoError(t, RequirePositive(time.Second, "budget.listen"))
	n := 3
	assert.Equal(t, 3, IntValue(&n, 7))
	assert.Equal(t, 7, IntValue(nil, 7))
}
