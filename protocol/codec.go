package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyFrame   = errors.New("protocol: empty frame")
	ErrEmptyType    = errors.New("protocol: empty envelope type")
	ErrNilPayload   = errors.New("protocol: nil payload")
	ErrEmptyPayload = errors.New("protocol: empty payload")
)

// marshal 排序 map 键，保证同一状态编码出的字节完全相同
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode 编码载荷并装入信封
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrEmptyType
	}
	if payload == nil {
		return nil, ErrNilPayload
	}
	pb, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return marshal(Envelope{T: t, P: pb})
}

// DecodeEnvelope 解出信封，载荷保持原始字节
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyFrame
	}
	var e Envelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if e.T == "" {
		return Envelope{}, ErrEmptyType
	}
	return e, nil
}

// DecodePayload 按类型解出载荷
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.T)
	}
	if err := msgpack.Unmarshal(env.P, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.T, err)
	}
	return out, nil
}
