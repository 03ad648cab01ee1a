package transport

import (
	"encoding/json"

	"github.com/dreamware/exelixi/internal/uow"
)

// Credentials is the {prefix, shard_id} tuple carried on every
// non-lifecycle control-plane payload.
type Credentials struct {
	Prefix  string `json:"prefix"`
	ShardID string `json:"shard_id"`
}

// ConfigRequest is the shard/config payload. Params travels alongside
// uow_name so every shard's UoW instance agrees with the orchestrator's
// own on n_pop/n_gen/selection_rate/etc — the spec's "Engine parameters"
// are otherwise pure class attributes with nowhere to live once a shard
// is a separate process.
type ConfigRequest struct {
	Credentials
	UoWName string     `json:"uow_name"`
	Params  uow.Params `json:"params"`
}

// RingInitRequest is the ring/init payload: shard_id -> endpoint.
type RingInitRequest struct {
	Credentials
	Ring map[string]string `json:"ring"`
}

// NextRequest is the uow/next payload.
type NextRequest struct {
	Credentials
	CurrentGen    int     `json:"current_gen"`
	FitnessCutoff float64 `json:"fitness_cutoff"`
}

// EnumRequest is the uow/enum payload.
type EnumRequest struct {
	Credentials
	FitnessCutoff float64 `json:"fitness_cutoff"`
}

// ReifyRequest is the uow/reify payload: a routed candidate.
type ReifyRequest struct {
	Credentials
	Key      string          `json:"key"`
	Gen      int             `json:"gen"`
	Features json.RawMessage `json:"features"`
}

// HistResponse is the uow/hist response body.
type HistResponse struct {
	TotalIndiv int            `json:"total_indiv"`
	Hist       map[string]int `json:"hist"`
}

// EnumEntry is a single uow/enum response tuple, wire-encoded as a JSON
// array of four strings: ["indiv", fitness, gen, features_json].
type EnumEntry struct {
	Tag      string
	Fitness  string
	Gen      string
	Features string
}

// MarshalJSON renders an EnumEntry as the four-element array the wire
// format specifies.
func (e EnumEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]string{e.Tag, e.Fitness, e.Gen, e.Features})
}

// UnmarshalJSON parses the four-element array form back into an
// EnumEntry.
func (e *EnumEntry) UnmarshalJSON(data []byte) error {
	var arr [4]string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	e.Tag, e.Fitness, e.Gen, e.Features = arr[0], arr[1], arr[2], arr[3]
	return nil
}
