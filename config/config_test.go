package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_RubricWeightOverrides(t *testing.T) {
	t.Setenv("RUBRIC_WEIGHT_OVERRIDES", `{"acme":{"communication":1,"structure":1,"problem_solving":1,"leadership":0.5,"quantification":5,"culture_fit":0.5}}`)

	cfg, err := NewConfig()
	require.NoError(t, err)

	weights, ok := cfg.RubricWeights["acme"]
	require.True(t, ok)
	assert.Equal(t, 5.0, weights.Quantification)
	assert.Equal(t, 1.0, weights.Communication)

	_, ok = cfg.RubricWeights["other"]
	assert.False(t, ok)
}

func TestParseRubricOverrides_InvalidJSONIgnored(t *testing.T) {
	overrides := parseRubricOverrides(`{"acme":`)
	assert.Empty(t, overrides)

	overrides = parseRubricOverrides("")
	assert.Empty(t, overrides)
}
