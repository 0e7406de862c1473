// Package estimate predicts post-conversion file sizes from a static table of
// per-codec compression factors.
package estimate

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DefaultFactors is the built-in table of expected size reduction by source
// video codec. Keys are lower-case codec names as reported by ffprobe.
var DefaultFactors = map[string]float64{
	"h264":       0.45,
	"mpeg4":      0.55,
	"msmpeg4v3":  0.60,
	"msmpeg4v2":  0.60,
	"vp6f":       0.50,
	"vc1":        0.45,
	"mpeg2video": 0.65,
	"realvideo":  0.60,
	"dv":         0.60,
	"prores":     0.80,
	"theora":     0.55,
	"cinepak":    0.65,
}

// DefaultExcluded lists codecs that are never scheduled for conversion.
var DefaultExcluded = []string{"hevc", "h265", "h.265", "av1", "vp9"}

// Estimator maps an original size and codec to an estimated converted size.
// It is immutable after construction and safe for concurrent use.
type Estimator struct {
	factors  map[string]float64
	keep     map[string]*big.Rat
	excluded map[string]struct{}
}

// Option customizes an Estimator.
type Option func(*Estimator)

// WithFactors overrides or extends the default factor table. Factors outside
// [0, 1) are ignored.
func WithFactors(factors map[string]float64) Option {
	return func(e *Estimator) {
		for codec, factor := range factors {
			e.setFactor(codec, factor)
		}
	}
}

// WithExcluded replaces the excluded codec set. Matching is case-insensitive.
func WithExcluded(codecs []string) Option {
	return func(e *Estimator) {
		e.excluded = make(map[string]struct{}, len(codecs))
		for _, codec := range codecs {
			if codec = strings.ToLower(strings.TrimSpace(codec)); codec != "" {
				e.excluded[codec] = struct{}{}
			}
		}
	}
}

// New builds an Estimator from the default table plus any options.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		factors: make(map[string]float64, len(DefaultFactors)),
		keep:    make(map[string]*big.Rat, len(DefaultFactors)),
	}
	for codec, factor := range DefaultFactors {
		e.setFactor(codec, factor)
	}
	WithExcluded(DefaultExcluded)(e)
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// setFactor records 1 - factor as an exact rational taken from the shortest
// decimal form of factor, so 0.12345 keeps exactly 87655/100000.
func (e *Estimator) setFactor(codec string, factor float64) {
	if codec == "" || factor < 0 || factor >= 1 || math.IsNaN(factor) {
		return
	}
	decimal, ok := new(big.Rat).SetString(strconv.FormatFloat(factor, 'g', -1, 64))
	if !ok {
		return
	}
	e.factors[codec] = factor
	e.keep[codec] = decimal.Sub(big.NewRat(1, 1), decimal)
}

// Factor returns the compression factor for codec, or 0 when the codec is not
// in the table. Lookup is case-sensitive against lower-case keys.
func (e *Estimator) Factor(codec string) float64 {
	return e.factors[codec]
}

// Estimate returns floor(original * (1 - factor)) and the implied saving.
// Unknown codecs leave the size unchanged.
func (e *Estimator) Estimate(original uint64, codec string) (estimated, saved uint64) {
	keep, ok := e.keep[codec]
	if !ok {
		return original, 0
	}
	n := new(big.Int).SetUint64(original)
	n.Mul(n, keep.Num())
	n.Quo(n, keep.Denom())
	estimated = n.Uint64()
	return estimated, original - estimated
}

// IsExcluded reports whether codec is in the excluded set, ignoring case and
// surrounding whitespace.
func (e *Estimator) IsExcluded(codec string) bool {
	_, ok := e.excluded[strings.ToLower(strings.TrimSpace(codec))]
	return ok
}

// Eligible reports whether a file with codec may be inserted into the queue:
// the codec is known (non-empty) and not excluded.
func (e *Estimator) Eligible(codec string) bool {
	return strings.TrimSpace(codec) != "" && !e.IsExcluded(codec)
}
