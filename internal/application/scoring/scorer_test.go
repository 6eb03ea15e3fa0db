package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemPrep/internal/config"
	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

func newTestScorer(t *testing.T, handler http.HandlerFunc) *HTTPScorer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPScorer(config.ScoringConfig{BaseURL: srv.URL, Timeout: 5 * time.Second}, nil, nil)
}

func TestHTTPScorer_Smoke(t *testing.T) {
	var seen scoreRequest
	scorer := newTestScorer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		json.NewEncoder(w).Encode(scoreResponse{Score: -7.5})
	})

	ligand, err := molecule.FromSmiles("CCO", "ethanol")
	require.NoError(t, err)

	score, err := scorer.Score(context.Background(), "3ERT", ligand)
	require.NoError(t, err)
	assert.Equal(t, -7.5, score)
	assert.Equal(t, "3ERT", seen.Receptor)
	assert.Equal(t, "ethanol", seen.Name)
	assert.Equal(t, ligand.CanonicalSMILES(true), seen.Smiles)
}

func TestHTTPScorer_ServiceError(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := scorer.Score(context.Background(), "3ERT", molecule.MustParseSMILES("C"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScoringFailed))
}

func TestHTTPScorer_RejectedComplex(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{Error: "ligand failed to dock"})
	})

	_, err := scorer.Score(context.Background(), "3ERT", molecule.MustParseSMILES("C"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScoringFailed))
}

func TestHTTPScorer_Unreachable(t *testing.T) {
	scorer := NewHTTPScorer(config.ScoringConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 200 * time.Millisecond,
	}, nil, nil)

	_, err := scorer.Score(context.Background(), "3ERT", molecule.MustParseSMILES("C"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeScoringUnavailable))
}

func TestComplexFeaturizer(t *testing.T) {
	scorer := newTestScorer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(scoreResponse{Score: -9.1})
	})
	feat := &ComplexFeaturizer{Scorer: scorer, Receptor: "3ERT", Timeout: 5 * time.Second}

	assert.Equal(t, []string{"complex_score"}, feat.Names())
	values, err := feat.Featurize(molecule.MustParseSMILES("CCO"))
	require.NoError(t, err)
	assert.Equal(t, []float64{-9.1}, values)
}
