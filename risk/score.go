// Package risk implements the heuristic risk scorer. The score blends
// RSI displacement, valuation, and sentiment into a [0,1] value; it is a
// placeholder model, versioned so responses can be told apart once a
// trained model replaces it.
package risk

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// ModelVersion tags every score produced by this formula.
const ModelVersion = "v0.1"

// Defaults substituted for absent features.
const (
	DefaultRSI       = 50.0
	DefaultPE        = 20.0
	DefaultPEG       = 1.0
	DefaultSentiment = 0.0
	DefaultATR       = 1.0
)

// Input holds the features the scorer accepts. PEG and ATR are part of
// the feature contract but do not participate in the v0.1 formula.
type Input struct {
	RSI       float64
	PE        float64
	PEG       float64
	Sentiment float64
	ATR       float64
}

// DefaultInput returns an Input with every feature at its default.
func DefaultInput() Input {
	return Input{
		RSI:       DefaultRSI,
		PE:        DefaultPE,
		PEG:       DefaultPEG,
		Sentiment: DefaultSentiment,
		ATR:       DefaultATR,
	}
}

// Scorer computes risk scores. A small random jitter keeps repeated
// scores from looking artificially stable; tests use a zero-jitter
// scorer for exact assertions.
type Scorer struct {
	mu     sync.Mutex
	jitter float64
	rng    *rand.Rand
}

// NewScorer returns the production scorer with +/-0.05 jitter.
func NewScorer() *Scorer {
	return &Scorer{
		jitter: 0.05,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewDeterministicScorer returns a scorer without jitter.
func NewDeterministicScorer() *Scorer {
	return &Scorer{}
}

// Score blends the input features into a risk score in [0,1], rounded to
// three decimals. RSI contributes its displacement from neutral, PE its
// fraction of 100, and sentiment inverted so bearish reads as risky. The
// blend is capped at 1 before jitter but deliberately not floored, so a
// deeply negative PE can pull the final score to 0.
func (s *Scorer) Score(in Input) float64 {
	rsiTerm := math.Abs(in.RSI-50) / 50
	peTerm := in.PE / 100
	sentimentTerm := 1 - (in.Sentiment+1)/2

	base := (rsiTerm + peTerm + sentimentTerm) / 3
	if base > 1 {
		base = 1
	}

	score := base
	if s.jitter > 0 {
		// rand.Rand is not safe for concurrent use; batch enrichment
		// scores from multiple goroutines.
		s.mu.Lock()
		score += (s.rng.Float64()*2 - 1) * s.jitter
		s.mu.Unlock()
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*1000) / 1000
}
