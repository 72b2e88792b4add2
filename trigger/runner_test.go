package trigger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sequenceos/chainmonitor/config"
	"github.com/sequenceos/chainmonitor/filter"
	"github.com/sequenceos/chainmonitor/trigger"
)

func sampleMatch() filter.Match {
	return filter.Match{
		MonitorName: "large-transfers",
		NetworkSlug: "ethereum_mainnet",
		BlockNumber: 100,
		TxHash:      "0xdead",
		Variables:   map[string]any{"value": "10000000001"},
	}
}

func TestRun_BashScriptApproves(t *testing.T) {
	cond := config.TriggerCondition{
		Path:      "-c",
		Language:  "bash",
		Args:      []string{"read _; echo true"},
		TimeoutMS: 2000,
	}
	// bash -c reads its script from argv[0] after "-c", so Path doubles as
	// the -c flag and the script itself lives in Args.
	passed, err := trigger.Run(context.Background(), cond, sampleMatch())
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestRun_BashScriptVetoes(t *testing.T) {
	cond := config.TriggerCondition{
		Path:      "-c",
		Language:  "bash",
		Args:      []string{"read _; echo false"},
		TimeoutMS: 2000,
	}
	passed, err := trigger.Run(context.Background(), cond, sampleMatch())
	assert.False(t, passed)
	assert.ErrorIs(t, err, trigger.ErrVetoed)
}

func TestRun_UnsupportedLanguageErrors(t *testing.T) {
	cond := config.TriggerCondition{Path: "/bin/true", Language: "ruby"}
	_, err := trigger.Run(context.Background(), cond, sampleMatch())
	require.Error(t, err)
}

func TestRun_TimeoutIsAnError(t *testing.T) {
	cond := config.TriggerCondition{
		Path:      "-c",
		Language:  "bash",
		Args:      []string{"sleep 5; echo true"},
		TimeoutMS: 50,
	}
	_, err := trigger.Run(context.Background(), cond, sampleMatch())
	require.Error(t, err)
}

func TestEvaluateAll_EmptyConditionsPasses(t *testing.T) {
	passed, err := trigger.EvaluateAll(context.Background(), nil, sampleMatch())
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestEvaluateAll_ShortCircuitsOnVeto(t *testing.T) {
	conds := []config.TriggerCondition{
		{Path: "-c", Language: "bash", Args: []string{"read _; echo false"}, TimeoutMS: 2000},
		{Path: "-c", Language: "bash", Args: []string{"exit 1"}, TimeoutMS: 2000}, // would also fail, never reached
	}
	passed, err := trigger.EvaluateAll(context.Background(), conds, sampleMatch())
	assert.False(t, passed)
	assert.ErrorIs(t, err, trigger.ErrVetoed, "evaluation stops at the first veto without running later scripts")
}
