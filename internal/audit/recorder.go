package audit

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/normalize"
)

// Generator matches chat.Generator.
type Generator interface {
	Generate(ctx context.Context, req client.GenerateRequest) (any, error)
}

// Recorder wraps a Generator and records every call. Audit write failures
// are logged and never change the result the caller sees.
type Recorder struct {
	next Generator
	log  *Log
	zap  *zap.Logger
}

func NewRecorder(next Generator, log *Log, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{next: next, log: log, zap: logger}
}

func (r *Recorder) Generate(ctx context.Context, req client.GenerateRequest) (any, error) {
	raw, err := r.next.Generate(ctx, req)

	e := Event{
		Prompt:            req.Prompt,
		Tradeoff:          req.Tradeoff,
		ComplianceEnabled: req.ComplianceEnabled,
	}
	if err != nil {
		e.Error = err.Error()
	} else {
		result := normalize.Normalize(raw)
		e.Kind = result.Kind
		e.Status = result.ComplianceStatus()
		e.Model = result.Model
		e.Raw = encodeRaw(raw)
	}

	if werr := r.log.Record(e); werr != nil {
		r.zap.Warn("failed to write audit event", zap.Error(werr))
	}
	return raw, err
}

// encodeRaw keeps the payload as received: text stays a JSON string, bytes
// are kept verbatim when they are valid JSON.
func encodeRaw(raw any) json.RawMessage {
	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		if json.Valid(v) {
			return json.RawMessage(v)
		}
		raw = string(v)
	case json.RawMessage:
		if json.Valid(v) {
			return v
		}
		raw = string(v)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return data
}
