// Package lossim simulates packet loss for the decode pipeline with a
// two-state Gilbert channel model.
//
// The channel is either good (records are delivered) or bad (records are
// dropped). Transition probabilities are derived from the target loss rate r
// and the average burst length L so that the stationary loss probability is
// exactly r and drops arrive in runs of mean length L:
//
//	P(good -> bad) = r / (L * (1 - r))
//	P(bad -> good) = 1 / L
//
// The state chain starts from its stationary distribution and every draw
// comes from one seeded source, so a schedule is fully reproducible from its
// parameters.
package lossim

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrLossRate reports a loss rate outside [0, 1) or one that cannot be
	// reached with the requested burst length.
	ErrLossRate = errors.New("lossim: invalid loss rate")

	// ErrBurstLength reports an average burst length below one packet.
	ErrBurstLength = errors.New("lossim: invalid average burst length")
)

// Injector decides, one record at a time, whether the decode pipeline
// receives that record. An Injector belongs to a single pipeline run; create
// a fresh one per run to replay the same schedule.
type Injector struct {
	lossRate    float64
	burstLength float64
	seed        uint64

	start  distuv.Bernoulli
	toBad  distuv.Bernoulli
	toGood distuv.Bernoulli

	started bool
	bad     bool

	delivered uint64
	dropped   uint64
}

// New creates an Injector targeting the given stationary loss rate and
// average burst length, driven by the seed. A loss rate of zero yields a
// schedule that delivers every record.
func New(lossRate, averageBurstLength float64, seed uint64) (*Injector, error) {
	var errs []error
	if lossRate < 0 || lossRate >= 1 {
		errs = append(errs, fmt.Errorf("%w: %g not in [0, 1)", ErrLossRate, lossRate))
	}
	if averageBurstLength < 1 {
		errs = append(errs, fmt.Errorf("%w: %g is below one packet", ErrBurstLength, averageBurstLength))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	pGoodToBad := 0.0
	if lossRate > 0 {
		pGoodToBad = lossRate / (averageBurstLength * (1 - lossRate))
		if pGoodToBad > 1 {
			return nil, fmt.Errorf("%w: rate %g needs an average burst length of at least %g",
				ErrLossRate, lossRate, lossRate/(1-lossRate))
		}
	}

	src := rand.NewSource(seed)
	return &Injector{
		lossRate:    lossRate,
		burstLength: averageBurstLength,
		seed:        seed,
		start:       distuv.Bernoulli{P: lossRate, Src: src},
		toBad:       distuv.Bernoulli{P: pGoodToBad, Src: src},
		toGood:      distuv.Bernoulli{P: 1 / averageBurstLength, Src: src},
	}, nil
}

// Next advances the channel by one record and reports whether that record is
// delivered. The first call draws the starting state from the stationary
// distribution.
func (inj *Injector) Next() bool {
	if !inj.started {
		inj.started = true
		inj.bad = inj.start.Rand() == 1
	} else if inj.bad {
		inj.bad = inj.toGood.Rand() != 1
	} else {
		inj.bad = inj.toBad.Rand() == 1
	}
	if inj.bad {
		inj.dropped++
		return false
	}
	inj.delivered++
	return true
}

// LossRate returns the configured stationary loss rate.
func (inj *Injector) LossRate() float64 { return inj.lossRate }

// AverageBurstLength returns the configured mean run length of drops.
func (inj *Injector) AverageBurstLength() float64 { return inj.burstLength }

// Seed returns the seed driving the schedule.
func (inj *Injector) Seed() uint64 { return inj.seed }

// Delivered returns how many records Next has delivered so far.
func (inj *Injector) Delivered() uint64 { return inj.delivered }

// Dropped returns how many records Next has dropped so far.
func (inj *Injector) Dropped() uint64 { return inj.dropped }
