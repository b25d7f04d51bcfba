// Package facematch decides which enrolled identity, if any, a live
// embedding belongs to.
package facematch

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/faceatm/faceatm/internal/enrollment"
)

// ErrNoMatch means no enrolled embedding lies within the threshold of the
// live sample. Distinct from a failed extraction.
var ErrNoMatch = errors.New("no enrolled identity matched")

// Source enumerates enrolled embeddings. The enrollment repository
// satisfies it.
type Source interface {
	Embeddings(ctx context.Context) ([]enrollment.Enrolled, error)
}

// Matcher performs a strict nearest-neighbor search under a distance
// threshold. The linear scan is fine at enrollment counts this system
// sees; an index can replace it behind the same Match contract.
type Matcher struct {
	source    Source
	threshold float64
}

// New builds a matcher over the given source. threshold is the maximum
// Euclidean distance for two embeddings to count as the same identity.
func New(source Source, threshold float64) *Matcher {
	return &Matcher{source: source, threshold: threshold}
}

// Match returns the id of the enrolled identity nearest to live, provided
// the distance is below the threshold. Ties keep the first enumerated
// candidate; the winner between exactly equidistant identities is
// deterministic but otherwise unspecified.
func (m *Matcher) Match(ctx context.Context, live []float64) (string, error) {
	enrolled, err := m.source.Embeddings(ctx)
	if err != nil {
		return "", err
	}

	best := ""
	bestDistance := math.Inf(1)
	for _, candidate := range enrolled {
		d, err := distance(live, candidate.Embedding)
		if err != nil {
			return "", fmt.Errorf("candidate %s: %w", candidate.ID, err)
		}
		if d < m.threshold && d < bestDistance {
			best = candidate.ID
			bestDistance = d
		}
	}

	if best == "" {
		return "", ErrNoMatch
	}
	return best, nil
}

func distance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}
