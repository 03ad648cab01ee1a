package ga

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dreamware/exelixi/internal/uow"
)

// FitnessFunc computes fitness in [0.0, 1.0] for a feature vector.
type FitnessFunc func(features []int) float64

// GenerateFunc produces a fresh feature vector. The default samples length
// values uniformly from [min, max] with replacement, then sorts; problems
// whose features are permutations (e.g. a travelling-salesperson route)
// supply their own.
type GenerateFunc func(rng *rand.Rand) []int

// Config parameterizes the GA UoW beyond the shared engine Params.
type Config struct {
	Length  int
	Min     int
	Max     int
	Fitness FitnessFunc
	// Generate overrides the default sorted-sample-with-replacement
	// generator; nil uses the default.
	Generate GenerateFunc
}

// UoW is the genetic-algorithm reference implementation of
// uow.UnitOfWork.
type UoW struct {
	cfg    Config
	params uow.Params

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a GA UoW. It registers nothing; callers that want name-based
// dispatch register a Constructor via uow.Register pointing at a factory
// that calls New with a fixed Config.
func New(cfg Config, params uow.Params) (*UoW, error) {
	if cfg.Length <= 0 {
		return nil, fmt.Errorf("ga: Length must be positive")
	}
	if cfg.Min > cfg.Max {
		return nil, fmt.Errorf("ga: Min must be <= Max")
	}
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("ga: Fitness function is required")
	}
	if cfg.Generate == nil {
		length, min, max := cfg.Length, cfg.Min, cfg.Max
		cfg.Generate = func(rng *rand.Rand) []int {
			features := make([]int, length)
			span := max - min + 1
			for i := range features {
				features[i] = min + rng.Intn(span)
			}
			sort.Ints(features)
			return features
		}
	}
	return &UoW{
		cfg:    cfg,
		params: params,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Generate produces a fresh feature vector via the configured generator.
func (u *UoW) Generate() json.RawMessage {
	u.mu.Lock()
	features := u.cfg.Generate(u.rng)
	u.mu.Unlock()
	return encodeFeatures(features)
}

// KeyOf hashes the canonical (sorted) JSON encoding of features with
// SHA-256 and hex-encodes the digest.
func (u *UoW) KeyOf(features json.RawMessage) string {
	fs := decodeFeatures(features)
	sorted := append([]int(nil), fs...)
	sort.Ints(sorted)
	canon := encodeFeatures(sorted)
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}

// Evaluate delegates to the configured fitness function.
func (u *UoW) Evaluate(features json.RawMessage) float64 {
	return u.cfg.Fitness(decodeFeatures(features))
}

// Mutate replaces one uniformly-chosen position with a fresh value from
// the configured domain, then re-sorts.
func (u *UoW) Mutate(features json.RawMessage) json.RawMessage {
	fs := append([]int(nil), decodeFeatures(features)...)
	if len(fs) == 0 {
		return features
	}
	u.mu.Lock()
	pos := u.rng.Intn(len(fs))
	span := u.cfg.Max - u.cfg.Min + 1
	fs[pos] = u.cfg.Min + u.rng.Intn(span)
	u.mu.Unlock()

	sort.Ints(fs)
	return encodeFeatures(fs)
}

// Crossover takes the father's second half concatenated with the mother's
// first half, sorted. Because the result is sorted, the concatenation
// order is not externally observable, but this mirrors the original
// breed_features split exactly.
func (u *UoW) Crossover(a, b json.RawMessage) json.RawMessage {
	father := decodeFeatures(a)
	mother := decodeFeatures(b)

	half := len(father) / 2
	child := make([]int, 0, len(father))
	child = append(child, father[half:]...)
	mHalf := len(mother) / 2
	child = append(child, mother[:mHalf]...)

	sort.Ints(child)
	return encodeFeatures(child)
}

// ShouldTerminate computes the mean-squared error of (1.0 - bin)^2
// weighted by count over the merged histogram, returning true once that
// MSE falls to or below TermLimit, or once totalSeen reaches the
// configured MaxTotalIndiv cap (when that cap is non-zero).
func (u *UoW) ShouldTerminate(currentGen int, hist uow.Histogram, totalSeen int) bool {
	if u.params.MaxTotalIndiv > 0 && totalSeen >= u.params.MaxTotalIndiv {
		return true
	}
	mse, n := meanSquaredError(hist)
	if n == 0 {
		return false
	}
	return mse <= u.params.TermLimit
}

// meanSquaredError returns the count-weighted MSE of (1.0-bin)^2 over the
// histogram and the total count, so callers can distinguish "no data yet"
// from "MSE is exactly zero".
func meanSquaredError(hist uow.Histogram) (float64, int) {
	var sumSq float64
	var n int
	for binStr, count := range hist {
		var bin float64
		fmt.Sscanf(binStr, "%g", &bin)
		diff := 1.0 - bin
		sumSq += diff * diff * float64(count)
		n += count
	}
	if n == 0 {
		return 0, 0
	}
	return sumSq / float64(n), n
}

// Params returns the engine parameters this instance was constructed with.
func (u *UoW) Params() uow.Params {
	return u.params
}

func encodeFeatures(fs []int) json.RawMessage {
	b, err := json.Marshal(fs)
	if err != nil {
		// fs is always []int; Marshal cannot fail for it.
		panic(fmt.Sprintf("ga: unexpected marshal failure: %v", err))
	}
	return b
}

func decodeFeatures(raw json.RawMessage) []int {
	var fs []int
	if len(raw) == 0 {
		return fs
	}
	if err := json.Unmarshal(raw, &fs); err != nil {
		return nil
	}
	return fs
}
