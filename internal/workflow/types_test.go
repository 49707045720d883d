package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllAgentsPending(t *testing.T) {
	w := New(42, "Add CSV export", []string{"feature", "priority:high"})

	assert.Equal(t, PhaseFoundation, w.Phase)
	require.Len(t, w.Agents, len(AllAgents()))
	for _, s := range w.Agents {
		assert.Equal(t, AgentPending, s.Status)
	}
}

func TestAgentStatus_Transitions(t *testing.T) {
	s := AgentStatus{Agent: AgentSpec, Status: AgentPending}
	start := time.Now()

	require.NoError(t, s.Start(start))
	assert.Equal(t, AgentRunning, s.Status)

	// Duration is only defined once the agent completes.
	assert.Zero(t, s.Duration)

	done := start.Add(3 * time.Second)
	require.NoError(t, s.Complete(done))
	assert.Equal(t, AgentComplete, s.Status)
	assert.Equal(t, 3*time.Second, s.Duration)
}

func TestAgentStatus_StartTwice(t *testing.T) {
	s := AgentStatus{Agent: AgentSpec, Status: AgentPending}
	require.NoError(t, s.Start(time.Now()))

	err := s.Start(time.Now())
	assert.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestAgentStatus_FailRecordsCause(t *testing.T) {
	s := AgentStatus{Agent: AgentTests, Status: AgentPending}
	require.NoError(t, s.Start(time.Now()))
	require.NoError(t, s.Fail(time.Now(), "timeout contacting model"))

	assert.Equal(t, AgentError, s.Status)
	assert.Equal(t, "timeout contacting model", s.LastError)
}

func TestAgentStatus_CompleteWithoutStart(t *testing.T) {
	s := AgentStatus{Agent: AgentImpl, Status: AgentPending}
	assert.ErrorIs(t, s.Complete(time.Now()), ErrNotRunning)
}

func TestWorkflow_CompletedAndErroredAgents(t *testing.T) {
	w := New(7, "Fix invoice rounding", nil)
	now := time.Now()

	spec := w.AgentStatusFor(AgentSpec)
	require.NotNil(t, spec)
	require.NoError(t, spec.Start(now))
	require.NoError(t, spec.Complete(now.Add(time.Second)))

	tests := w.AgentStatusFor(AgentTests)
	require.NoError(t, tests.Start(now))
	require.NoError(t, tests.Fail(now.Add(time.Second), "flaky fixture"))

	assert.Equal(t, []Agent{AgentSpec}, w.CompletedAgents())
	errored := w.ErroredAgents()
	require.Len(t, errored, 1)
	assert.Equal(t, AgentTests, errored[0].Agent)
}

func TestWorkflow_Priority(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   string
	}{
		{"explicit", []string{"bug", "priority:critical"}, "critical"},
		{"missing", []string{"bug"}, "medium"},
		{"empty value", []string{"priority:"}, "medium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(1, "t", tt.labels)
			assert.Equal(t, tt.want, w.Priority())
		})
	}
}

func TestWorkflow_Classification(t *testing.T) {
	w := New(1, "t", []string{"priority:high", "feature"})
	assert.Equal(t, "feature/high", w.Classification())

	unlabeled := New(2, "t", nil)
	assert.Equal(t, "change/medium", unlabeled.Classification())
}

func TestPhaseFor_CoversAllAgents(t *testing.T) {
	want := map[Agent]Phase{
		AgentSpec:    PhaseFoundation,
		AgentTests:   PhaseFoundation,
		AgentImpl:    PhaseDevelopment,
		AgentQA:      PhaseQuality,
		AgentSec:     PhaseQuality,
		AgentDocs:    PhaseDeployment,
		AgentRelease: PhaseDeployment,
	}
	for agent, phase := range want {
		assert.Equal(t, phase, PhaseFor(agent), "agent %s", agent)
	}
}

func TestQualityGateStatus_Validate(t *testing.T) {
	gs := QualityGateStatus{Gate: Gate{Name: "quality", Threshold: 90}, Score: 101}
	assert.ErrorIs(t, gs.Validate(), ErrScoreOutOfRange)

	gs.Score = 88
	assert.NoError(t, gs.Validate())
}

func TestRecordEvent_Ordered(t *testing.T) {
	w := New(3, "t", nil)
	w.RecordEvent("agent_started", map[string]any{"agent": "spec"})
	w.RecordEvent("agent_completed", map[string]any{"agent": "spec"})

	require.Len(t, w.Events, 2)
	assert.Equal(t, "agent_started", w.Events[0].Type)
	assert.Equal(t, "agent_completed", w.Events[1].Type)
}
