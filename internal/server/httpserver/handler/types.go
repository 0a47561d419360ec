package handler

import (
	"encoding/base64"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/yndnr/shardmap-go/pkg/shardmap"
)

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// EncodingBase64 marks a value carried as standard base64. Values without an
// encoding are UTF-8 text.
const EncodingBase64 = "base64"

// EncodeValue renders a stored value for JSON. Values that are not valid
// UTF-8 are base64 encoded so binary data written over RESP survives.
func EncodeValue(b []byte) (value, encoding string) {
	if utf8.Valid(b) {
		return string(b), ""
	}
	return base64.StdEncoding.EncodeToString(b), EncodingBase64
}

// DecodeValue reverses EncodeValue.
func DecodeValue(value, encoding string) ([]byte, error) {
	switch encoding {
	case "":
		return []byte(value), nil
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(value)
	default:
		return nil, fmt.Errorf("unknown value encoding %q", encoding)
	}
}

// ValueRequest is the body of PUT /v1/keys/{key} and
// POST /v1/keys/{key}/replace.
type ValueRequest struct {
	Value    *string `json:"value"`
	Encoding string  `json:"encoding,omitempty"`
}

// KeyResponse is returned by key reads and writes.
type KeyResponse struct {
	Key              string  `json:"key"`
	Value            string  `json:"value"`
	Encoding         string  `json:"encoding,omitempty"`
	Previous         *string `json:"previous,omitempty"`
	PreviousEncoding string  `json:"previous_encoding,omitempty"`
	Bucket           int     `json:"bucket"`
}

func newKeyResponse(key string, value []byte, bucket int) KeyResponse {
	v, enc := EncodeValue(value)
	return KeyResponse{Key: key, Value: v, Encoding: enc, Bucket: bucket}
}

// Bytes returns the decoded value.
func (r *KeyResponse) Bytes() ([]byte, error) {
	return DecodeValue(r.Value, r.Encoding)
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	shardmap.Stats
	Strategy string `json:"strategy"`
	Uptime   string `json:"uptime"`
}
