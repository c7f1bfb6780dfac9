// Package scanner evaluates a rule configuration against compiled classes
// and records the methods it selects.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/korniloval/fierix/pkg/classfile"
	"github.com/korniloval/fierix/pkg/descriptor"
	"github.com/korniloval/fierix/pkg/enum"
	"github.com/korniloval/fierix/pkg/logging"
	"github.com/korniloval/fierix/pkg/prefilter"
	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/store"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/rs/zerolog"
)

// Scanner wraps a configuration and a store for scanning operations.
type Scanner struct {
	config           *rule.Configuration
	store            store.Store
	incremental      bool
	includeSynthetic bool
	logger           zerolog.Logger

	// prefilter built for the snapshot it was derived from
	compiled atomic.Pointer[compiledSnapshot]
}

type compiledSnapshot struct {
	snapshot  *rule.Snapshot
	prefilter *prefilter.Prefilter
	order     map[*types.MethodConfig]int // position in Including
}

// New creates a scanner.
func New(cfg Config) (*Scanner, error) {
	if cfg.Configuration == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	s := cfg.Store
	if s == nil {
		var err error
		if s, err = store.New(store.Config{Path: ":memory:"}); err != nil {
			return nil, fmt.Errorf("creating store: %w", err)
		}
	}

	return &Scanner{
		config:           cfg.Configuration,
		store:            s,
		incremental:      cfg.Incremental,
		includeSynthetic: cfg.IncludeSynthetic,
		logger:           logging.GetLogger("scanner"),
	}, nil
}

// Store returns the store results are written to.
func (s *Scanner) Store() store.Store {
	return s.store
}

// ScanClass evaluates every method of one class file and stores the
// selected ones. Constructors and static initializers are reported under
// their JVM names <init> and <clinit>.
func (s *Scanner) ScanClass(content []byte, blobID types.BlobID, prov types.Provenance) ([]*types.Match, error) {
	matches, _, err := s.scanClass(content, blobID, prov)
	return matches, err
}

func (s *Scanner) scanClass(content []byte, blobID types.BlobID, prov types.Provenance) ([]*types.Match, int, error) {
	class, err := classfile.Parse(content)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing class file: %w", err)
	}
	if class.IsModule() {
		return nil, 0, nil
	}

	cs := s.current()
	className := class.QualifiedName()

	var candidates []*types.MethodConfig
	for _, mc := range cs.prefilter.Candidates(className) {
		if mc.AppliesToClass(className) {
			candidates = append(candidates, mc)
		}
	}
	if len(candidates) == 0 {
		return nil, 0, nil
	}

	location := ""
	if prov != nil {
		location = prov.Path()
	}

	var matches []*types.Match
	evaluated := 0
	for _, method := range class.Methods {
		if method.IsSynthetic() && !s.includeSynthetic {
			continue
		}

		qualified, _, err := descriptor.DecodeMethodQualified(method.Descriptor)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("class", className).
				Str("method", method.Name).
				Msg("Skipping method with invalid descriptor")
			continue
		}
		evaluated++

		mc := cs.selectRule(candidates, className, method.Name, qualified)
		if mc == nil {
			continue
		}

		// stored references keep the short names used in reports
		params, ret, err := descriptor.DecodeMethod(method.Descriptor)
		if err != nil {
			return nil, evaluated, err
		}

		m := &types.Match{
			BlobID: blobID,
			Method: types.MethodRef{
				Class:      className,
				Name:       method.Name,
				Descriptor: method.Descriptor,
				Parameters: params,
				ReturnType: ret,
			},
			Rule:            mc.String(),
			SaveReturnValue: mc.SaveReturnValue(),
			Location:        location,
		}
		m.StructuralID = m.ComputeStructuralID()

		if err := s.store.AddMatch(m); err != nil {
			return nil, evaluated, fmt.Errorf("storing match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, evaluated, nil
}

// selectRule returns the earliest including config among candidates that
// matches the method, or nil when none does or an excluding config matches.
func (cs *compiledSnapshot) selectRule(candidates []*types.MethodConfig, className, methodName string, params []string) *types.MethodConfig {
	for _, mc := range cs.snapshot.Excluding {
		if mc.Matches(className, methodName, params) {
			return nil
		}
	}

	var best *types.MethodConfig
	for _, mc := range candidates {
		if best != nil && cs.order[mc] > cs.order[best] {
			continue
		}
		if mc.Matches(className, methodName, params) {
			best = mc
		}
	}
	return best
}

// current returns the compiled form of the configuration's snapshot,
// rebuilding it when the configuration changed.
func (s *Scanner) current() *compiledSnapshot {
	snap := s.config.Snapshot()
	if cs := s.compiled.Load(); cs != nil && cs.snapshot == snap {
		return cs
	}

	cs := &compiledSnapshot{
		snapshot:  snap,
		prefilter: prefilter.New(snap.Including),
		order:     make(map[*types.MethodConfig]int, len(snap.Including)),
	}
	for i, mc := range snap.Including {
		cs.order[mc] = i
	}
	s.compiled.Store(cs)
	return cs
}

// Scan enumerates class files and scans each one. Blobs that are not valid
// class files are counted and skipped.
func (s *Scanner) Scan(ctx context.Context, enumerator enum.Enumerator) (*Stats, error) {
	done := logging.LogOperationStart(s.logger, "scan")
	defer done()

	var mu sync.Mutex
	stats := &Stats{}

	err := enumerator.Enumerate(ctx, func(content []byte, blobID types.BlobID, prov types.Provenance) error {
		if s.incremental {
			exists, err := s.store.BlobExists(blobID)
			if err != nil {
				return fmt.Errorf("checking blob: %w", err)
			}
			if exists {
				mu.Lock()
				stats.Skipped++
				mu.Unlock()
				return s.store.AddProvenance(blobID, prov)
			}
		}

		if err := s.store.AddBlob(blobID, int64(len(content))); err != nil {
			return fmt.Errorf("storing blob: %w", err)
		}

		if err := s.store.AddProvenance(blobID, prov); err != nil {
			return fmt.Errorf("storing provenance: %w", err)
		}

		matches, evaluated, err := s.scanClass(content, blobID, prov)
		if err != nil && !isClassFileError(err) {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.Failed++
			s.logger.Warn().
				Err(err).
				Str("path", prov.Path()).
				Msg("Skipping class file")
			return nil
		}
		stats.Classes++
		stats.Methods += evaluated
		stats.Matches += len(matches)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("scanning: %w", err)
	}

	s.logger.Info().
		Int("classes", stats.Classes).
		Int("matches", stats.Matches).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Scan complete")
	return stats, nil
}

func isClassFileError(err error) bool {
	return errors.Is(err, classfile.ErrNotClassFile) ||
		errors.Is(err, classfile.ErrTruncated) ||
		errors.Is(err, classfile.ErrMalformed)
}

// Close releases scanner resources.
func (s *Scanner) Close() error {
	return s.store.Close()
}
