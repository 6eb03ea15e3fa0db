// Package scoring computes protein-ligand complex scores through a remote
// scoring service.  Docking and pose scoring need binaries and force fields
// far outside this codebase, so the pipeline treats scoring as an external
// HTTP dependency and only shapes the request/response traffic.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/turtacn/ChemPrep/internal/config"
	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/internal/metrics"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// Scorer scores a ligand against a named receptor.
type Scorer interface {
	Score(ctx context.Context, receptor string, ligand *molecule.Molecule) (float64, error)
}

// scoreRequest is the wire request: the ligand travels as isomeric
// canonical SMILES.
type scoreRequest struct {
	Receptor string `json:"receptor"`
	Smiles   string `json:"smiles"`
	Name     string `json:"name,omitempty"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

// HTTPScorer talks to a scoring service over JSON.
type HTTPScorer struct {
	baseURL string
	client  *http.Client
	log     logging.Logger
	metrics *metrics.Metrics
}

// NewHTTPScorer builds a scorer against the configured service.
func NewHTTPScorer(cfg config.ScoringConfig, log logging.Logger, m *metrics.Metrics) *HTTPScorer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &HTTPScorer{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log.Named("scoring"),
		metrics: m,
	}
}

// Score posts the ligand to the service and returns its complex score.
func (s *HTTPScorer) Score(ctx context.Context, receptor string, ligand *molecule.Molecule) (float64, error) {
	body, err := json.Marshal(scoreRequest{
		Receptor: receptor,
		Smiles:   ligand.CanonicalSMILES(true),
		Name:     ligand.Name,
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode scoring request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeScoringFailed, "failed to build scoring request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeScoringUnavailable, "scoring service unreachable")
	}
	defer resp.Body.Close()
	s.metrics.ScoringDuration.Observe(time.Since(start).Seconds())

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeScoringFailed, "failed to read scoring response")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.New(errors.ErrCodeScoringFailed, "scoring service returned an error").
			WithDetail(fmt.Sprintf("status=%d body=%s", resp.StatusCode, payload))
	}

	var out scoreResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeScoringFailed, "failed to decode scoring response")
	}
	if out.Error != "" {
		return 0, errors.New(errors.ErrCodeScoringFailed, "scoring rejected the complex").WithDetail(out.Error)
	}

	s.log.Debug("scored complex",
		logging.String("receptor", receptor),
		logging.String("ligand", ligand.Name),
		logging.Float64("score", out.Score))
	return out.Score, nil
}

// ComplexFeaturizer exposes a fixed-receptor complex score as a one-column
// feature vector.
type ComplexFeaturizer struct {
	Scorer   Scorer
	Receptor string

	// Timeout bounds each scoring call made outside a caller context.
	Timeout time.Duration
}

// Names returns the single score column.
func (f *ComplexFeaturizer) Names() []string { return []string{"complex_score"} }

// Featurize scores the ligand against the configured receptor.
func (f *ComplexFeaturizer) Featurize(mol *molecule.Molecule) ([]float64, error) {
	ctx := context.Background()
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	score, err := f.Scorer.Score(ctx, f.Receptor, mol)
	if err != nil {
		return nil, err
	}
	return []float64{score}, nil
}
