package shard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// readAndRestoreBody reads r.Body fully and replaces it with a fresh
// reader over the same bytes, so the body can be inspected more than
// once — first to peek the {prefix, shard_id} credentials for the auth
// check, then again to decode the endpoint-specific payload.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

func decodeBody(r *http.Request, dst any) error {
	b, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
