// Package electriccar is the example domain: a car crossing a continent
// decides at every charger whether to recharge. Trajectories come from the
// simulator directly or are stitched from a database of simulated
// transitions (model-free Monte Carlo).
package electriccar

import (
	"errors"
	"fmt"
	"math/rand"

	"mdpvis/internal/ensemble"
	"mdpvis/internal/stitch"

	"github.com/rs/zerolog/log"
)

// State variable names.
const (
	FieldReward            = "reward"
	FieldCharge            = "charge level"
	FieldDistanceRemaining = "total distance remaining"
	FieldAction            = "action"
)

const (
	distanceBetweenChargers = 200.0
	distanceAcrossContinent = 3000.0
	depletionPenalty        = -1000.0
	chargingFixedCost       = -100.0
	numberTransitions       = 15

	policySeedSalt = 0x5eed
)

var errDestinationReached = errors.New("car already reached its destination")

// ExogenousField returns the name of the i-th exogenous variable.
func ExogenousField(i int) string {
	return fmt.Sprintf("exogenous %d", i)
}

// Metric is the stitching distance: charge and distance always, action
// and exogenous terms when requested.
func Metric() stitch.Metric {
	m := stitch.Metric{
		State: []stitch.Dimension{
			{Field: FieldCharge, Scale: 1.0 / 12},
			{Field: FieldDistanceRemaining, Scale: 850000},
		},
		ActionScale: 0.25,
	}
	for i := 0; i < maxExogenousVariables; i++ {
		m.Exogenous = append(m.Exogenous, stitch.Dimension{Field: ExogenousField(i), Scale: 1.0 / 12})
	}
	return m
}

// Generate returns the trajectories for a query.
func Generate(cfg Config) ([]ensemble.Trajectory, error) {
	dbPolicy, dbCount := cfg.DatabasePolicy, cfg.DatabaseCount
	if !cfg.UseMFMC {
		dbPolicy, dbCount = cfg.EvaluationPolicy, cfg.SampleCount
	}

	db := stitch.NewDatabase(Metric())
	simulated := make([]ensemble.Trajectory, 0, dbCount)
	for i := 0; i < dbCount; i++ {
		traj, transitions, err := simulate(cfg.Seed+int64(i), cfg.ExogenousCount, dbPolicy)
		if err != nil {
			return nil, err
		}
		simulated = append(simulated, traj)
		db.Add(transitions)
	}
	if !cfg.UseMFMC {
		return simulated, nil
	}

	out := make([]ensemble.Trajectory, 0, cfg.SampleCount)
	for i := 0; i < cfg.SampleCount; i++ {
		traj, err := synthesize(db, cfg, cfg.Seed+int64(i))
		if err != nil {
			return nil, fmt.Errorf("synthesising trajectory %d: %w", i, err)
		}
		out = append(out, traj)
	}
	log.Debug().
		Int("database", dbCount).
		Int("synthesised", len(out)).
		Msg("MFMC trajectories stitched")
	return out, nil
}

// simulate runs one trajectory through the true transition model, recording
// the off-policy outcome of every step for bias correction.
func simulate(seed int64, exogenousCount, policyID int) (ensemble.Trajectory, []stitch.Transition, error) {
	rng := rand.New(rand.NewSource(seed))
	policy, err := newPolicy(policyID, seed)
	if err != nil {
		return nil, nil, err
	}

	current := ensemble.Event{
		FieldReward:            0.0,
		FieldCharge:            rng.Float64(),
		FieldDistanceRemaining: distanceAcrossContinent,
		stitch.DistanceField:   0.0,
	}
	addExogenous(rng, exogenousCount, current)

	traj := make(ensemble.Trajectory, 0, numberTransitions+1)
	transitions := make([]stitch.Transition, 0, numberTransitions)
	for i := 0; i < numberTransitions; i++ {
		action := policy(current)
		current[FieldAction] = float64(action)

		onPolicy, err := step(rng, exogenousCount, current, action)
		if err != nil {
			return nil, nil, err
		}
		offPolicy, err := step(rng, exogenousCount, current, 1-action)
		if err != nil {
			return nil, nil, err
		}
		for j := 0; j < maxExogenousVariables; j++ {
			offPolicy[ExogenousField(j)] = onPolicy[ExogenousField(j)]
		}

		traj = append(traj, current)
		transitions = append(transitions, stitch.Transition{
			State:         current,
			Action:        float64(action),
			Next:          onPolicy,
			OffPolicyNext: offPolicy,
		})
		current = onPolicy
	}
	current[FieldAction] = 0.0
	traj = append(traj, current)
	return traj, transitions, nil
}

// step samples the state reached by taking action in state. Charging refills
// the battery at a fixed cost; depletion beyond the charge is penalised.
func step(rng *rand.Rand, exogenousCount int, state ensemble.Event, action int) (ensemble.Event, error) {
	remaining, _ := state.Float(FieldDistanceRemaining)
	if remaining <= 0 {
		return nil, errDestinationReached
	}

	depletion := 0.5
	if exogenousCount > 0 {
		total := 0.0
		for i := 0; i < maxExogenousVariables; i++ {
			v, _ := state.Float(ExogenousField(i))
			total += v
		}
		depletion = total / float64(exogenousCount)
	}

	charge, _ := state.Float(FieldCharge)
	cost := 0.0
	if action == 1 {
		charge = 1
		cost = chargingFixedCost
	}

	next := ensemble.Event{
		FieldDistanceRemaining: remaining - distanceBetweenChargers,
		stitch.DistanceField:   0.0,
	}
	if depletion > charge {
		next[FieldReward] = depletionPenalty + cost
		next[FieldCharge] = 0.0
	} else {
		next[FieldReward] = cost
		next[FieldCharge] = charge - depletion
	}
	addExogenous(rng, exogenousCount, next)
	return next, nil
}

// addExogenous samples the active exogenous variables and zeroes the rest so
// every state carries the same columns.
func addExogenous(rng *rand.Rand, count int, state ensemble.Event) {
	for i := 0; i < maxExogenousVariables; i++ {
		v := 0.0
		if i < count {
			v = rng.Float64()
		}
		state[ExogenousField(i)] = v
	}
}

// synthesize stitches one trajectory for the evaluation policy out of the
// database's recorded transitions.
func synthesize(db *stitch.Database, cfg Config, seed int64) (ensemble.Trajectory, error) {
	policy, err := newPolicy(cfg.EvaluationPolicy, seed)
	if err != nil {
		return nil, err
	}
	current, err := db.InitialState(cfg.WithReplacement)
	if err != nil {
		return nil, err
	}
	opts := stitch.QueryOptions{
		IncludeAction:      cfg.ActionsInMetric,
		IncludeExogenous:   cfg.ExogenousInMetric,
		WithReplacement:    cfg.WithReplacement,
		RequireActionMatch: cfg.RequireMatchingAction,
		BiasCorrection:     cfg.BiasCorrection,
		Eligible:           startOnlyFromStart,
	}

	traj := make(ensemble.Trajectory, 0, numberTransitions+1)
	action := policy(current)
	traj = append(traj, withAction(current, action))
	for j := 0; j < numberTransitions; j++ {
		m, err := db.Query(current, float64(action), opts)
		if err != nil {
			return nil, err
		}
		current = m.Result
		action = policy(current)
		if j == numberTransitions-1 {
			traj = append(traj, withAction(current, 0))
			break
		}
		traj = append(traj, withAction(current, action))
	}
	return traj, nil
}

// startOnlyFromStart keeps start-of-journey transitions for queries that are
// themselves at the start.
func startOnlyFromStart(query, candidate ensemble.Event) bool {
	q, _ := query.Float(FieldDistanceRemaining)
	c, _ := candidate.Float(FieldDistanceRemaining)
	return q == distanceAcrossContinent || c != distanceAcrossContinent
}

func withAction(state ensemble.Event, action int) ensemble.Event {
	out := make(ensemble.Event, len(state)+1)
	for k, v := range state {
		out[k] = v
	}
	out[FieldAction] = float64(action)
	return out
}
