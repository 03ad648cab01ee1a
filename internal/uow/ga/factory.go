package ga

import (
	"math"

	"github.com/dreamware/exelixi/internal/uow"
)

// TargetSumConfig parameterizes the basic target-sum fitness function
// ported from the source's default FeatureFactory: fitness is
// 1.0 - |sum(features)-target| / target, floored at 0.0.
type TargetSumConfig struct {
	Length int
	Min    int
	Max    int
	Target int
}

// NewTargetSum builds a GA UoW whose fitness rewards feature vectors
// summing close to Target.
func NewTargetSum(cfg TargetSumConfig, params uow.Params) (*UoW, error) {
	target := float64(cfg.Target)
	fitness := func(features []int) float64 {
		sum := 0
		for _, f := range features {
			sum += f
		}
		return math.Max(0.0, 1.0-math.Abs(float64(sum)-target)/target)
	}
	return New(Config{
		Length:  cfg.Length,
		Min:     cfg.Min,
		Max:     cfg.Max,
		Fitness: fitness,
	}, params)
}

// TargetSumName is the registry name for the target-sum reference UoW.
const TargetSumName = "ga-target-sum"

// TargetSumParams are the engine parameters used when a caller passes
// a zero-value uow.Params (e.g. a direct uow.New call in a test that
// only cares about the problem shape, not the engine knobs). A real
// run threads its own Params in from internal/config (the coordinator)
// or from shard/config's request body (every worker), which this
// Constructor honors as-is — engine parameters are a run-wide setting,
// not a property of the problem definition.
var TargetSumParams = uow.Params{
	NPop:            30,
	NGen:            100,
	SelectionRate:   0.2,
	MutationRate:    0.02,
	HistGranularity: 2,
	TermLimit:       0.02,
	MaxTotalIndiv:   0,
}

func init() {
	uow.Register(TargetSumName, func(params uow.Params) (uow.UnitOfWork, error) {
		if params == (uow.Params{}) {
			params = TargetSumParams
		}
		return NewTargetSum(TargetSumConfig{
			Length: 5,
			Min:    0,
			Max:    100,
			Target: 231,
		}, params)
	})
}
