package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStep_UnmarshalYAML(t *testing.T) {
	t.Run("string argument", func(t *testing.T) {
		var s Step
		require.NoError(t, yaml.Unmarshal([]byte(`navigate: https://x.example/`), &s))
		assert.Equal(t, CmdNavigate, s.Command)
		assert.Equal(t, "https://x.example/", s.Args)
	})

	t.Run("mapping argument", func(t *testing.T) {
		var s Step
		data := []byte("click:\n  selector: \"#login\"\n  count: 2\n")
		require.NoError(t, yaml.Unmarshal(data, &s))
		assert.Equal(t, CmdClick, s.Command)
		m, ok := s.Args.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "#login", m["selector"])
		assert.Equal(t, 2, m["count"])
	})

	t.Run("bare scalar is a no-arg command", func(t *testing.T) {
		var s Step
		require.NoError(t, yaml.Unmarshal([]byte(`scroll`), &s))
		assert.Equal(t, CmdScroll, s.Command)
		assert.Nil(t, s.Args)
	})

	t.Run("numeric argument", func(t *testing.T) {
		var s Step
		require.NoError(t, yaml.Unmarshal([]byte(`wait: 1500`), &s))
		assert.Equal(t, CmdWait, s.Command)
		assert.Equal(t, 1500, s.Args)
	})

	t.Run("two keys rejected", func(t *testing.T) {
		var s Step
		err := yaml.Unmarshal([]byte("click: \"#a\"\ntype: \"#b\"\n"), &s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one command key")
	})
}

func TestStep_MarshalRoundTrip(t *testing.T) {
	original := NewStep(CmdClick, map[string]any{"selector": "#login"})
	data, err := yaml.Marshal(original)
	require.NoError(t, err)

	var decoded Step
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, original.Command, decoded.Command)
	assert.Equal(t, original.Args, decoded.Args)
}
