// Package analytics tracks how the validator is used: every validation
// becomes a ValidationEvent, published to Kafka in batches by the Collector
// and folded into running statistics by the Aggregator.
package analytics

import (
	"time"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
)

type EventType string

const (
	EventCodeValidation   EventType = "code_validation"
	EventImportValidation EventType = "import_validation"
)

type ValidationEvent struct {
	Type           EventType      `json:"type"`
	Valid          bool           `json:"valid"`
	ErrorCount     int            `json:"error_count"`
	ErrorTypes     map[string]int `json:"error_types,omitempty"`
	UnknownClasses []string       `json:"unknown_classes,omitempty"`
	MissingMethods []string       `json:"missing_methods,omitempty"`
	LatencyMs      float64        `json:"latency_ms"`
	CacheHit       bool           `json:"cache_hit"`
	Timestamp      time.Time      `json:"timestamp"`
	RequestID      string         `json:"request_id,omitempty"`
}

// Recorder accepts validation events. Both the Collector and the Aggregator
// implement it.
type Recorder interface {
	Record(event ValidationEvent)
}

// NewCodeEvent summarises a code validation.
func NewCodeEvent(res *validation.Result, latency time.Duration, cacheHit bool, requestID string) ValidationEvent {
	ev := ValidationEvent{
		Type:      EventCodeValidation,
		Valid:     res.IsValid,
		LatencyMs: float64(latency.Microseconds()) / 1000,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
	ev.ErrorCount = len(res.Errors)
	if ev.ErrorCount > 0 {
		ev.ErrorTypes = make(map[string]int)
	}
	for _, e := range res.Errors {
		ev.ErrorTypes[string(e.Type)]++
		switch e.Type {
		case validation.ErrorUnknownClass:
			ev.UnknownClasses = append(ev.UnknownClasses, e.Identifier)
		case validation.ErrorMethod:
			ev.MissingMethods = append(ev.MissingMethods, e.Identifier)
		}
	}
	return ev
}

// NewImportEvent summarises a single import statement check.
func NewImportEvent(res validation.ImportResult, latency time.Duration, requestID string) ValidationEvent {
	ev := ValidationEvent{
		Type:      EventImportValidation,
		Valid:     res.Valid,
		LatencyMs: float64(latency.Microseconds()) / 1000,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
	if !res.Valid {
		ev.ErrorCount = 1
		ev.ErrorTypes = map[string]int{string(validation.ErrorImport): 1}
	}
	return ev
}

// Fanout records every event on each of its recorders.
type Fanout []Recorder

func (f Fanout) Record(event ValidationEvent) {
	for _, r := range f {
		r.Record(event)
	}
}
