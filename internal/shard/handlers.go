package shard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dreamware/exelixi/internal/transport"
)

// NewHandler builds the HTTP control plane for w. stopSignal, if non-nil,
// receives a value once a correctly-credentialed shard/stop has been
// accepted, so the caller (cmd/worker) can perform the delayed graceful
// shutdown described in §5 ("shard/stop returns its HTTP response before
// the server is stopped, on a short delay, to avoid racing the close of
// the response socket").
func NewHandler(w *Worker, stopSignal chan<- struct{}) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/shard/config", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.ConfigRequest
		if !decodeOrBadRequest(rw, r, &req) {
			return
		}
		if err := w.Configure(req.Prefix, req.ShardID, req.UoWName, req.Params); err != nil {
			http.Error(rw, err.Error(), http.StatusForbidden)
			return
		}
		ackText(rw, "Bokay")
	})

	mux.HandleFunc("/shard/wait", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.Credentials
		if !authenticated(w, rw, r, &req) {
			return
		}
		w.Phase().Wait()
		ackText(rw, "Bokay")
	})

	mux.HandleFunc("/shard/join", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.Credentials
		if !authenticated(w, rw, r, &req) {
			return
		}
		w.Queue().Join()
		ackText(rw, "Bokay")
	})

	mux.HandleFunc("/shard/stop", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.Credentials
		decodeBody(r, &req) // a malformed body still gets "Goodbye": see CheckCredentials below
		ackText(rw, "Goodbye")
		if w.CheckCredentials(req.Prefix, req.ShardID) {
			w.Stop()
			if stopSignal != nil {
				select {
				case stopSignal <- struct{}{}:
				default:
				}
			}
		}
		// Wrong-prefix shard/stop is accepted syntactically but
		// suppressed: no state change, no signal.
	})

	mux.HandleFunc("/shard/persist", noopAck(w))
	mux.HandleFunc("/shard/recover", noopAck(w))

	mux.HandleFunc("/ring/init", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.RingInitRequest
		if !authenticated(w, rw, r, &req.Credentials) {
			return
		}
		if err := decodeBody(r, &req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		if err := w.InitRing(req.Ring); err != nil {
			http.Error(rw, err.Error(), http.StatusForbidden)
			return
		}
		ackText(rw, "Bokay")
	})

	mux.HandleFunc("/ring/add", noopAck(w))
	mux.HandleFunc("/ring/del", noopAck(w))

	mux.HandleFunc("/uow/populate", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.Credentials
		if !authenticated(w, rw, r, &req) {
			return
		}
		// Clear before acking so a shard/wait that follows this ack blocks
		// until the phase ends.
		w.Phase().Clear()
		ackText(rw, "Bokay")
		go w.Populate(context.Background())
	})

	mux.HandleFunc("/uow/hist", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.Credentials
		if !authenticated(w, rw, r, &req) {
			return
		}
		total, hist := w.Hist()
		writeJSON(rw, transport.HistResponse{TotalIndiv: total, Hist: hist})
	})

	mux.HandleFunc("/uow/next", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.NextRequest
		if !authenticated(w, rw, r, &req.Credentials) {
			return
		}
		if err := decodeBody(r, &req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		w.Phase().Clear()
		ackText(rw, "Bokay")
		go w.NextGeneration(context.Background(), req.CurrentGen, req.FitnessCutoff)
	})

	mux.HandleFunc("/uow/enum", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.EnumRequest
		if !authenticated(w, rw, r, &req.Credentials) {
			return
		}
		if err := decodeBody(r, &req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		entries := make([]transport.EnumEntry, 0)
		for _, c := range w.Enum(req.FitnessCutoff) {
			entries = append(entries, transport.EnumEntry{
				Tag:      "indiv",
				Fitness:  fmt.Sprintf("%.4f", *c.Fitness),
				Gen:      fmt.Sprintf("%d", c.Generation),
				Features: string(c.Features),
			})
		}
		writeJSON(rw, entries)
	})

	mux.HandleFunc("/uow/reify", func(rw http.ResponseWriter, r *http.Request) {
		var req transport.ReifyRequest
		if !authenticated(w, rw, r, &req.Credentials) {
			return
		}
		if err := decodeBody(r, &req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		w.ReceiveReify(req.Key, req.Gen, req.Features)
		ackText(rw, "Bokay")
	})

	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(rw, r)
			return
		}
		if r.Method != http.MethodGet {
			http.NotFound(rw, r)
			return
		}
		fmt.Fprintf(rw, "shard_id=%s state=%s generation=%d total_indiv=%d\n",
			w.shardID, w.State(), w.Generation(), w.TotalIndiv())
	})

	return mux
}

func noopAck(w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var req transport.Credentials
		if !authenticated(w, rw, r, &req) {
			return
		}
		ackText(rw, "Bokay")
	}
}

// authenticated decodes the request body into dst (which must embed or be
// a transport.Credentials), checks it against w's configured credentials,
// and writes 403 on mismatch. It returns whether the caller may proceed.
func authenticated(w *Worker, rw http.ResponseWriter, r *http.Request, creds *transport.Credentials) bool {
	body, err := peekCredentials(r)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return false
	}
	*creds = body
	if !w.CheckCredentials(body.Prefix, body.ShardID) {
		http.Error(rw, "incorrect shard prefix", http.StatusForbidden)
		return false
	}
	return true
}

func peekCredentials(r *http.Request) (transport.Credentials, error) {
	var creds transport.Credentials
	body, err := readAndRestoreBody(r)
	if err != nil {
		return creds, err
	}
	if len(body) == 0 {
		return creds, nil
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		return creds, err
	}
	return creds, nil
}

func decodeOrBadRequest(rw http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(r, dst); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func ackText(rw http.ResponseWriter, text string) {
	rw.Header().Set("Content-Type", "text/plain")
	rw.WriteHeader(http.StatusOK)
	fmt.Fprint(rw, text)
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(http.StatusOK)
	json.NewEncoder(rw).Encode(v)
}
