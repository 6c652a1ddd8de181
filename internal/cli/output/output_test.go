package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "auto", "text", "markdown", "json"} {
		_, err := ParseMode(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseMode("yaml")
	assert.Error(t, err)
}

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeMarkdown, NewRenderer(&buf, &buf, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeText, NewRenderer(&buf, &buf, ModeText).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRenderer(&buf, &buf, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&buf, &buf, ModeAuto).IsTTY())
}

func TestRenderer_Table(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeMarkdown)
	r.Table([]string{"Dataset", "Status"}, [][]string{{"c/A", "success"}})

	out := buf.String()
	assert.Contains(t, out, "| Dataset | Status |")
	assert.Contains(t, out, "| c/A | success |")
}

func TestRenderer_TextTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeText)
	r.Table([]string{"Dataset"}, [][]string{{"c/A"}})
	assert.Contains(t, buf.String(), "c/A")
	assert.Contains(t, buf.String(), "┌")
}

func TestRenderer_PlainStylesWhenPiped(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, ModeText)
	r.Success("done")
	r.Error("broken")
	assert.Equal(t, "✓ done\n", out.String())
	assert.Equal(t, "✗ broken\n", errOut.String())
}

func TestRenderer_JSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, &buf, ModeJSON)
	require.NoError(t, r.JSON(map[string]int{"rows": 2}))
	assert.JSONEq(t, `{"rows": 2}`, buf.String())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "## Runs", FormatHeader(2, "Runs"))
	assert.Equal(t, "- **Status**: completed", FormatKeyValue("Status", "completed"))
	assert.Equal(t, "Semi Supervised", Title("semi_supervised"))
}
