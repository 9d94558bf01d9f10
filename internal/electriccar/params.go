package electriccar

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrInvalidQuery is returned when a query parameter is malformed or out of range.
var ErrInvalidQuery = errors.New("invalid electric car query")

// Parameter describes one query parameter as presented to users.
type Parameter struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Default     float64 `json:"default"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

// Query parameter names.
const (
	ParamSampleCount        = "Sample Count"
	ParamSeed               = "Seed"
	ParamUseMFMC            = "Use MFMC"
	ParamExogenousInMetric  = "Include Exogenous Variables in Metric"
	ParamActionsInMetric    = "Include Actions in Metric"
	ParamRequireMatching    = "Require Matching Action"
	ParamExogenousCount     = "Exogenous Variable Count"
	ParamDatabaseCount      = "Database Trajectory Count"
	ParamBiasCorrection     = "Include Bias Correction Sample"
	ParamDatabasePolicy     = "Database Policy"
	ParamWithReplacement    = "Sample with Replacement"
	ParamEvaluationPolicy   = "Evaluation Policy"
	policyDescription       = "Probability of charging: (0) distance remaining / starting distance, (1) opposite of 0, (2) if charge < .5, (3) opposite of 2, (4) if exogenous 1 > .5, (5) opposite of 4."
	maxExogenousVariables   = 7
	maxPolicy               = 5
	maxTrajectoriesPerQuery = 200
)

// Parameters lists every query parameter with its default and range.
var Parameters = []Parameter{
	{ParamSampleCount, "How many trajectories to generate.", 40, 1, maxTrajectoriesPerQuery},
	{ParamSeed, "The random seed used for simulations.", 0, 0, 100},
	{ParamUseMFMC, "Synthesise trajectories from a transition database (1) or run the simulator (0).", 0, 0, 1},
	{ParamExogenousInMetric, "Include exogenous variables in the stitching distance. Ignored without MFMC.", 0, 0, 1},
	{ParamActionsInMetric, "Include actions in the stitching distance. Ignored without MFMC.", 0, 0, 1},
	{ParamRequireMatching, "Only stitch to transitions that took the same action.", 0, 0, 1},
	{ParamExogenousCount, "How many exogenous variables determine the distribution of fuel economy.", 3, 0, maxExogenousVariables},
	{ParamDatabaseCount, "How many trajectories to sample into the database.", 40, 1, maxTrajectoriesPerQuery},
	{ParamBiasCorrection, "Stitch to the recorded off-policy outcome when actions differ.", 1, 0, 1},
	{ParamDatabasePolicy, policyDescription, 0, 0, maxPolicy},
	{ParamWithReplacement, "Allow database transitions to be reused within one sample set.", 0, 0, 1},
	{ParamEvaluationPolicy, policyDescription, 0, 0, maxPolicy},
}

// Config is a parsed query.
type Config struct {
	SampleCount           int
	Seed                  int64
	UseMFMC               bool
	ExogenousInMetric     bool
	ActionsInMetric       bool
	RequireMatchingAction bool
	ExogenousCount        int
	DatabaseCount         int
	BiasCorrection        bool
	DatabasePolicy        int
	WithReplacement       bool
	EvaluationPolicy      int
}

// DefaultConfig returns the configuration built from every parameter default.
func DefaultConfig() Config {
	cfg, _ := ParseQuery(nil)
	return cfg
}

// ParseQuery reads a query keyed by parameter name. Missing parameters take
// their defaults; values are truncated to integers.
func ParseQuery(query map[string]string) (Config, error) {
	values := make(map[string]int, len(Parameters))
	for _, p := range Parameters {
		v := int(p.Default)
		if raw, ok := query[p.Name]; ok && raw != "" {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Config{}, fmt.Errorf("%w: %s=%q", ErrInvalidQuery, p.Name, raw)
			}
			if f < p.Min || f > p.Max {
				return Config{}, fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrInvalidQuery, p.Name, f, p.Min, p.Max)
			}
			v = int(f)
		}
		values[p.Name] = v
	}

	return Config{
		SampleCount:           values[ParamSampleCount],
		Seed:                  int64(values[ParamSeed]),
		UseMFMC:               values[ParamUseMFMC] == 1,
		ExogenousInMetric:     values[ParamExogenousInMetric] == 1,
		ActionsInMetric:       values[ParamActionsInMetric] == 1,
		RequireMatchingAction: values[ParamRequireMatching] == 1,
		ExogenousCount:        values[ParamExogenousCount],
		DatabaseCount:         values[ParamDatabaseCount],
		BiasCorrection:        values[ParamBiasCorrection] == 1,
		DatabasePolicy:        values[ParamDatabasePolicy],
		WithReplacement:       values[ParamWithReplacement] == 1,
		EvaluationPolicy:      values[ParamEvaluationPolicy],
	}, nil
}

// QueryString encodes a query deterministically, for display and archiving.
func QueryString(query map[string]string) string {
	v := url.Values{}
	for k, val := range query {
		v.Set(k, val)
	}
	return v.Encode()
}
