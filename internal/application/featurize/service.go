package featurize

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ChemPrep/internal/domain/molecule"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/internal/metrics"
)

// Cache looks up previously computed vectors by canonical SMILES and
// descriptor set.  The redis descriptor cache satisfies this; a nil cache
// disables lookup entirely.
type Cache interface {
	Get(ctx context.Context, smiles string, names []string) ([]float64, bool)
	Put(ctx context.Context, smiles string, names []string, values []float64) error
}

// Result is the feature vector for one molecule.
type Result struct {
	Name   string
	Smiles string
	Values []float64
}

// BatchResult is the output of one featurization run.
type BatchResult struct {
	// RunID tags all artifacts of this run for tracing.
	RunID   string
	Names   []string
	Results []Result
}

// Service featurizes molecule batches, consulting the cache when one is
// configured.
type Service struct {
	feat    Featurizer
	cache   Cache
	log     logging.Logger
	metrics *metrics.Metrics
}

// NewService wires a featurization service.  cache may be nil.
func NewService(feat Featurizer, cache Cache, log logging.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Service{feat: feat, cache: cache, log: log.Named("featurize"), metrics: m}
}

// FeaturizeBatch computes a feature vector for every molecule, in order.
// The first failing molecule aborts the batch.
func (s *Service) FeaturizeBatch(ctx context.Context, mols []*molecule.Molecule) (*BatchResult, error) {
	start := time.Now()
	names := s.feat.Names()
	batch := &BatchResult{
		RunID: uuid.NewString(),
		Names: names,
	}

	for _, mol := range mols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		smiles := mol.CanonicalSMILES(true)

		values, hit := s.lookup(ctx, smiles, names)
		if !hit {
			var err error
			values, err = s.feat.Featurize(mol)
			if err != nil {
				return nil, err
			}
			s.store(ctx, smiles, names, values)
		}
		batch.Results = append(batch.Results, Result{Name: mol.Name, Smiles: smiles, Values: values})
	}

	elapsed := time.Since(start)
	s.metrics.FeaturizeDuration.Observe(elapsed.Seconds())
	s.log.Info("featurized batch",
		logging.String("run_id", batch.RunID),
		logging.Int("molecules", len(mols)),
		logging.Int("columns", len(names)),
		logging.Duration("elapsed", elapsed))
	return batch, nil
}

func (s *Service) lookup(ctx context.Context, smiles string, names []string) ([]float64, bool) {
	if s.cache == nil {
		return nil, false
	}
	values, hit := s.cache.Get(ctx, smiles, names)
	if hit {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
	}
	return values, hit
}

func (s *Service) store(ctx context.Context, smiles string, names []string, values []float64) {
	if s.cache == nil {
		return
	}
	// A failed write only costs a future recomputation.
	if err := s.cache.Put(ctx, smiles, names, values); err != nil {
		s.log.Warn("failed to cache feature vector", logging.String("smiles", smiles), logging.Err(err))
	}
}
