package workload

import (
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Inter-spike interval processes for the poisson generator.
const (
	ArrivalPoisson = "poisson"
	ArrivalGamma   = "gamma"
	ArrivalWeibull = "weibull"
)

var validArrivals = map[string]bool{
	ArrivalPoisson: true,
	ArrivalGamma:   true,
	ArrivalWeibull: true,
	"":             true, // empty defaults to poisson
}

// IsValidArrival reports whether name is a recognized interval process.
func IsValidArrival(name string) bool {
	return validArrivals[name]
}

// IntervalSampler draws inter-spike intervals.
type IntervalSampler interface {
	// SampleISI returns the next interval in ticks. Always positive.
	SampleISI(rng *rand.Rand) float64
}

// ExponentialSampler draws exponential intervals (CV = 1): a Poisson process.
type ExponentialSampler struct {
	rate float64 // spikes per tick
}

func (s *ExponentialSampler) SampleISI(rng *rand.Rand) float64 {
	return positive(rng.ExpFloat64() / s.rate)
}

// GammaSampler draws Gamma-distributed intervals. CV > 1 gives bursty trains.
// Uses Marsaglia-Tsang for shape >= 1, with a transformation for shape < 1.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // CV²/rate in ticks
}

func (s *GammaSampler) SampleISI(rng *rand.Rand) float64 {
	return positive(gammaRand(rng, s.shape, s.scale))
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler draws Weibull-distributed intervals.
type WeibullSampler struct {
	shape float64 // k
	scale float64 // λ, in ticks
}

func (s *WeibullSampler) SampleISI(rng *rand.Rand) float64 {
	// inverse CDF: scale * (-ln(U))^(1/shape)
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return positive(s.scale * math.Pow(-math.Log(u), 1.0/s.shape))
}

// positive floors an interval so spike times strictly increase.
func positive(isi float64) float64 {
	if isi <= 0 {
		return math.SmallestNonzeroFloat64
	}
	return isi
}

// NewIntervalSampler creates a sampler for the given process with mean
// interval 1/rate ticks and coefficient of variation cv (0 means 1).
// Unknown processes fall back to exponential.
func NewIntervalSampler(process string, cv, rate float64) IntervalSampler {
	if rate < 1e-15 {
		rate = 1e-15
	}
	if cv <= 0 {
		cv = 1.0
	}
	mean := 1.0 / rate
	switch process {
	case ArrivalGamma:
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &ExponentialSampler{rate: rate}
		}
		return &GammaSampler{shape: shape, scale: mean * cv * cv}
	case ArrivalWeibull:
		k := weibullShapeFromCV(cv)
		return &WeibullSampler{shape: k, scale: mean / math.Gamma(1.0+1.0/k)}
	default:
		return &ExponentialSampler{rate: rate}
	}
}

// weibullShapeFromCV finds the Weibull shape k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, by bisection over k ∈ [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV decreases in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
