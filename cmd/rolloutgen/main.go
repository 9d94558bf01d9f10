package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mdpvis/internal/electriccar"
	"mdpvis/internal/ensemble"
)

func main() {
	count := flag.Int("count", 40, "Number of trajectories to generate")
	seed := flag.Int64("seed", 0, "Simulator seed")
	policy := flag.Int("policy", 0, "Evaluation policy (0-5)")
	out := flag.String("out", "rollouts.jsonl", "Output JSONL file")
	query := map[string]string{}
	flag.Func("param", `Extra simulator parameter as "Name=value", e.g. "Use MFMC=1" (repeatable)`, func(s string) error {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("expected Name=value, got %q", s)
		}
		query[strings.TrimSpace(name)] = strings.TrimSpace(value)
		return nil
	})
	flag.Parse()

	query[electriccar.ParamSampleCount] = strconv.Itoa(*count)
	query[electriccar.ParamSeed] = strconv.FormatInt(*seed, 10)
	query[electriccar.ParamEvaluationPolicy] = strconv.Itoa(*policy)

	cfg, err := electriccar.ParseQuery(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Generating %d trajectories (%s) to %s...\n", cfg.SampleCount, electriccar.QueryString(query), *out)

	trajectories, err := electriccar.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate rollouts: %v\n", err)
		os.Exit(1)
	}
	if err := ensemble.WriteFile(*out, trajectories); err != nil {
		fmt.Printf("Failed to save rollouts: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
