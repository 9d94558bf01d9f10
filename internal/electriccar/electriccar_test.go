package electriccar

import (
	"math/rand"
	"testing"

	"mdpvis/internal/ensemble"
	"mdpvis/internal/stitch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:  "defaults",
			query: nil,
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 40, cfg.SampleCount)
				assert.Equal(t, 3, cfg.ExogenousCount)
				assert.Equal(t, 40, cfg.DatabaseCount)
				assert.True(t, cfg.BiasCorrection)
				assert.False(t, cfg.UseMFMC)
			},
		},
		{
			name:  "overrides truncate to integers",
			query: map[string]string{ParamSampleCount: "12.9", ParamUseMFMC: "1", ParamEvaluationPolicy: "3"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 12, cfg.SampleCount)
				assert.True(t, cfg.UseMFMC)
				assert.Equal(t, 3, cfg.EvaluationPolicy)
			},
		},
		{name: "not a number", query: map[string]string{ParamSeed: "abc"}, wantErr: true},
		{name: "policy out of range", query: map[string]string{ParamEvaluationPolicy: "9"}, wantErr: true},
		{name: "too many exogenous variables", query: map[string]string{ParamExogenousCount: "8"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseQuery(tt.query)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestQueryString_Deterministic(t *testing.T) {
	q := map[string]string{ParamSeed: "3", ParamSampleCount: "10"}
	assert.Equal(t, QueryString(q), QueryString(q))
	assert.Equal(t, "Sample+Count=10&Seed=3", QueryString(q))
}

func TestGenerate_Simulator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = 10

	trajs, err := Generate(cfg)
	require.NoError(t, err)
	require.Len(t, trajs, 10)

	for _, traj := range trajs {
		require.Len(t, traj, numberTransitions+1)
		first, _ := traj[0].Float(FieldDistanceRemaining)
		last, _ := traj[numberTransitions].Float(FieldDistanceRemaining)
		assert.Equal(t, distanceAcrossContinent, first)
		assert.Equal(t, 0.0, last)

		action, ok := traj[numberTransitions].Float(FieldAction)
		require.True(t, ok)
		assert.Equal(t, 0.0, action)

		for _, e := range traj {
			r, _ := e.Float(FieldReward)
			assert.Contains(t, []float64{0, chargingFixedCost, depletionPenalty, depletionPenalty + chargingFixedCost}, r)
			for i := cfg.ExogenousCount; i < maxExogenousVariables; i++ {
				v, ok := e.Float(ExogenousField(i))
				require.True(t, ok)
				assert.Zero(t, v)
			}
		}
	}

	again, err := Generate(cfg)
	require.NoError(t, err)
	assert.Equal(t, trajs, again)
}

func TestGenerate_ChargingPolicies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleCount = 5
	cfg.EvaluationPolicy = 2

	trajs, err := Generate(cfg)
	require.NoError(t, err)

	for _, traj := range trajs {
		for _, e := range traj[:numberTransitions] {
			charge, _ := e.Float(FieldCharge)
			action, _ := e.Float(FieldAction)
			if charge < 0.5 {
				assert.Equal(t, 1.0, action)
			} else {
				assert.Equal(t, 0.0, action)
			}
		}
	}
}

func TestGenerate_MFMC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseMFMC = true
	cfg.SampleCount = 5
	cfg.DatabaseCount = 10
	cfg.ExogenousInMetric = true

	trajs, err := Generate(cfg)
	require.NoError(t, err)
	require.Len(t, trajs, 5)

	for _, traj := range trajs {
		require.Len(t, traj, numberTransitions+1)
		first, _ := traj[0].Float(FieldDistanceRemaining)
		assert.Equal(t, distanceAcrossContinent, first)
		for _, e := range traj[1:] {
			d, ok := e.Float(stitch.DistanceField)
			require.True(t, ok)
			assert.GreaterOrEqual(t, d, 0.0)
			remaining, _ := e.Float(FieldDistanceRemaining)
			assert.Less(t, remaining, distanceAcrossContinent)
		}
	}
}

func TestGenerate_MFMCExhaustsDatabase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseMFMC = true
	cfg.SampleCount = 2
	cfg.DatabaseCount = 1

	_, err := Generate(cfg)
	assert.ErrorIs(t, err, stitch.ErrExhausted)

	cfg.WithReplacement = true
	trajs, err := Generate(cfg)
	require.NoError(t, err)
	assert.Len(t, trajs, 2)
}

func TestNewPolicy_Unknown(t *testing.T) {
	_, err := newPolicy(6, 0)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestStep_DepletionPenalty(t *testing.T) {
	state := ensemble.Event{FieldCharge: 0.1, FieldDistanceRemaining: 400.0}
	for i := 0; i < maxExogenousVariables; i++ {
		state[ExogenousField(i)] = 0.0
	}
	state[ExogenousField(0)] = 0.9

	next, err := step(rand.New(rand.NewSource(1)), 1, state, 0)
	require.NoError(t, err)
	assert.Equal(t, depletionPenalty, next[FieldReward])
	assert.Equal(t, 0.0, next[FieldCharge])
	assert.Equal(t, 200.0, next[FieldDistanceRemaining])
}
