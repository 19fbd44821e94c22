package session

import (
	"go.uber.org/zap"

	"github.com/Faultbox/gridwarp/internal/logger"
)

// Job is one headless deformation: load a mesh, apply an edit script and
// save the result.
type Job struct {
	Mesh      string
	Script    string // optional
	Output    string
	Overwrite bool
}

// Run executes job on a fresh grid and returns the path written. Any earlier
// edits in the session are discarded.
func (s *Session) Run(job Job) (string, error) {
	var sc *Script
	if job.Script != "" {
		var err error
		if sc, err = LoadScript(job.Script); err != nil {
			return "", err
		}
	}

	if err := s.LoadMesh(job.Mesh); err != nil {
		return "", err
	}
	if sc != nil {
		if err := s.Apply(sc); err != nil {
			return "", err
		}
	}

	out, err := s.Save(job.Output, job.Overwrite)
	if err != nil {
		return "", err
	}
	logger.Info("deformation written", zap.String("mesh", job.Mesh), zap.String("output", out))
	return out, nil
}
