package mcp

import (
	"errors"
	"fmt"
	"path/filepath"

	"mdpvis/internal/electriccar"
	"mdpvis/internal/ensemble"

	"github.com/rs/zerolog/log"
)

const defaultGeneratedName = "Electric Car"

type ingestInput struct {
	Name         string                `json:"name,omitempty" jsonschema:"display name (default: file name)"`
	Path         string                `json:"path,omitempty" jsonschema:"JSONL file with one trajectory per line"`
	Trajectories []ensemble.Trajectory `json:"trajectories,omitempty" jsonschema:"inline trajectories, each an array of event objects"`
}

type generateInput struct {
	Name  string            `json:"name,omitempty" jsonschema:"display name"`
	Query map[string]string `json:"query,omitempty" jsonschema:"simulator parameters by name"`
}

func (s *Server) handleIngestEnsemble(in ingestInput) (any, error) {
	if (in.Path == "") == (in.Trajectories == nil) {
		return nil, errors.New("pass exactly one of path or trajectories")
	}

	trajectories, query := in.Trajectories, ""
	name := in.Name
	if in.Path != "" {
		path := in.Path
		if !filepath.IsAbs(path) && s.cfg.DataPath != "" {
			path = filepath.Join(s.cfg.DataPath, path)
		}
		var err error
		if trajectories, err = ensemble.ReadFile(path); err != nil {
			return nil, err
		}
		query = path
		if name == "" {
			name = filepath.Base(path)
		}
	}
	if name == "" {
		name = "inline"
	}

	r := s.engine.OnNewEnsemble(name, query, trajectories)
	s.saveArchive()
	return r, nil
}

func (s *Server) handleGenerateEnsemble(in generateInput) (any, error) {
	cfg, err := electriccar.ParseQuery(in.Query)
	if err != nil {
		return nil, err
	}
	trajectories, err := electriccar.Generate(cfg)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	log.Info().Int("trajectories", len(trajectories)).Bool("mfmc", cfg.UseMFMC).Msg("Generated ensemble")

	name := in.Name
	if name == "" {
		name = defaultGeneratedName
	}
	r := s.engine.OnNewEnsemble(name, electriccar.QueryString(in.Query), trajectories)
	s.saveArchive()
	return r, nil
}
