package codec

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"
)

// Inbound is the client frame shape. Data stays raw until the dispatcher
// knows which payload struct the event maps to.
type Inbound struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Sequence  uint64          `json:"sequence,omitempty"`
}

// DecodeInbound parses a raw client frame.
func DecodeInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if in.Event == "" {
		return nil, fmt.Errorf("decode frame: missing event")
	}
	return &in, nil
}

// Frame is the versioned outbound shape. Checksum covers Data only.
type Frame struct {
	Event     string  `json:"event"`
	Data      any     `json:"data"`
	Version   uint64  `json:"version"`
	Checksum  string  `json:"checksum"`
	Timestamp float64 `json:"timestamp"`
}

// Encode builds a versioned outbound frame with checksum and timestamp.
func Encode(event string, data any, version uint64) ([]byte, error) {
	sum, err := Checksum(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{
		Event:     event,
		Data:      data,
		Version:   version,
		Checksum:  sum,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	})
}

// EncodeError builds an error frame addressed to a single channel. Error
// frames are not journaled and carry no version.
func EncodeError(kind, message string, details map[string]any) []byte {
	body := map[string]any{
		"type":    kind,
		"message": message,
	}
	if len(details) > 0 {
		body["details"] = details
	}
	raw, err := json.Marshal(map[string]any{
		"event": "error",
		"data":  body,
	})
	if err != nil {
		// map[string]any with scalar values cannot fail to marshal
		return []byte(`{"event":"error","data":{"type":"INTERNAL"}}`)
	}
	return raw
}

// Checksum is a 64-bit FNV-1a over the canonical JSON of data, excluding
// the checksum field itself. Clients use it to detect divergence.
func Checksum(data any) (string, error) {
	canonical, err := canonicalJSON(data)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	h := fnv.New64a()
	h.Write(canonical)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// canonicalJSON round-trips through a generic value so that map keys come
// out sorted regardless of the input struct's field order.
func canonicalJSON(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}
