package stats

import (
	"math/rand"
	"slices"

	"mdpvis/internal/ensemble"
	"mdpvis/internal/percentile"

	mstats "github.com/montanaflynn/stats"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultRewardField is the per-event reward column summed into the
// expected value.
const DefaultRewardField = "Discounted Reward"

// Options controls a statistics computation.
type Options struct {
	// MaxLength is the longest trajectory of the eligible (unfiltered)
	// ensemble, so rows exist for every reachable step regardless of
	// filtering. Values below the set's own maximum are raised to it.
	MaxLength int
	// Variables to summarise. Nil means every numeric field of the first event.
	Variables []string
	// RewardField feeds the expected value; absent fields omit it.
	RewardField string
	// SampleThreshold enables stratified sampling of the percentile input
	// when the set is larger. Zero disables sampling.
	SampleThreshold int
	Seed            int64
	// Workers > 1 computes variables in parallel.
	Workers int
}

// Compute builds the percentile table for the given trajectories. A
// trajectory contributes to step t only if it is longer than t; steps no
// trajectory reaches produce empty rows.
func Compute(trajectories []ensemble.Trajectory, opts Options) (*Table, error) {
	if len(trajectories) == 0 {
		return nil, ErrNoData
	}

	maxLen := max(opts.MaxLength, ensemble.MaxLength(trajectories))
	variables := opts.Variables
	if variables == nil {
		variables = numericFields(trajectories)
	}

	table := &Table{
		Percentiles:  make(map[string][]percentile.Row, len(variables)),
		Trajectories: len(trajectories),
		MaxLength:    maxLen,
	}

	sample := trajectories
	if opts.SampleThreshold > 0 && len(trajectories) > opts.SampleThreshold {
		sample = stratifiedSample(trajectories, opts.SampleThreshold, opts.Seed)
		table.Sampled = true
		table.SampleSize = len(sample)
		log.Warn().
			Int("trajectories", len(trajectories)).
			Int("sample", len(sample)).
			Msg("Percentiles computed on a stratified sample")
	}

	rows := make([][]percentile.Row, len(variables))
	if opts.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i, name := range variables {
			g.Go(func() error {
				rows[i] = variableRows(sample, name, maxLen)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, name := range variables {
			rows[i] = variableRows(sample, name, maxLen)
		}
	}
	for i, name := range variables {
		table.Percentiles[name] = rows[i]
	}

	rewardField := opts.RewardField
	if rewardField == "" {
		rewardField = DefaultRewardField
	}
	if ev, ok := ExpectedValue(trajectories, rewardField); ok {
		table.ExpectedValue = &ev
	}

	log.Debug().
		Int("trajectories", len(trajectories)).
		Int("variables", len(variables)).
		Int("steps", maxLen).
		Msg("Statistics recomputed")
	return table, nil
}

func variableRows(trajectories []ensemble.Trajectory, name string, maxLen int) []percentile.Row {
	rows := make([]percentile.Row, maxLen)
	samples := make([]float64, len(trajectories))
	for step := 0; step < maxLen; step++ {
		for i, t := range trajectories {
			samples[i] = valueAt(t, name, step)
		}
		rows[step] = percentile.NewRow(step, samples)
	}
	return rows
}

// valueAt returns the variable's value at step, or the missing marker when
// the trajectory has ended or holds no numeric value there.
func valueAt(t ensemble.Trajectory, name string, step int) float64 {
	if step >= len(t) {
		return percentile.Missing
	}
	v, ok := t[step].Float(name)
	if !ok {
		return percentile.Missing
	}
	return v
}

// ExpectedValue is the mean over trajectories of the summed reward field.
// It is only defined when the first recorded event has the field.
func ExpectedValue(trajectories []ensemble.Trajectory, field string) (float64, bool) {
	first, ok := ensemble.FirstEvent(trajectories)
	if !ok {
		return 0, false
	}
	if _, ok := first.Float(field); !ok {
		return 0, false
	}

	totals := make([]float64, len(trajectories))
	for i, t := range trajectories {
		for _, e := range t {
			if v, ok := e.Float(field); ok {
				totals[i] += v
			}
		}
	}
	mean, err := mstats.Mean(totals)
	if err != nil {
		return 0, false
	}
	return mean, true
}

func numericFields(trajectories []ensemble.Trajectory) []string {
	first, ok := ensemble.FirstEvent(trajectories)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(first))
	for name := range first {
		if _, ok := first.Float(name); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// stratifiedSample draws about size trajectories, keeping each length
// class's share of the set. The draw is deterministic for a given seed and
// preserves the original trajectory order.
func stratifiedSample(trajectories []ensemble.Trajectory, size int, seed int64) []ensemble.Trajectory {
	strata := make(map[int][]int)
	lengths := make([]int, 0)
	for i, t := range trajectories {
		if _, ok := strata[len(t)]; !ok {
			lengths = append(lengths, len(t))
		}
		strata[len(t)] = append(strata[len(t)], i)
	}
	slices.Sort(lengths)

	rng := rand.New(rand.NewSource(seed))
	total := len(trajectories)
	picked := make([]int, 0, size)
	for _, l := range lengths {
		members := strata[l]
		quota := max(1, len(members)*size/total)
		quota = min(quota, len(members))
		for _, j := range rng.Perm(len(members))[:quota] {
			picked = append(picked, members[j])
		}
	}
	slices.Sort(picked)

	out := make([]ensemble.Trajectory, len(picked))
	for i, idx := range picked {
		out[i] = trajectories[idx]
	}
	return out
}
