package pipeline

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticKind classifies a non-fatal conversion problem.
type DiagnosticKind string

// Diagnostic kinds reported during conversion.
const (
	DiagAuxMissing     DiagnosticKind = "aux-missing"
	DiagUnresolvedRef  DiagnosticKind = "unresolved-ref"
	DiagSpliceMismatch DiagnosticKind = "splice-mismatch"
	DiagUnterminated   DiagnosticKind = "unterminated"
	DiagImage          DiagnosticKind = "image"
	DiagAnchor         DiagnosticKind = "anchor"
	DiagListing        DiagnosticKind = "listing"
)

// Diagnostic is a non-fatal authoring or conversion problem.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Label   string // label name or file the problem refers to, if any
}

// Reporter collects diagnostics and mirrors them to a zap logger.
// A nil *Reporter is valid and discards everything.
type Reporter struct {
	log   *zap.Logger
	mu    sync.Mutex
	items []Diagnostic
}

// NewReporter creates a Reporter logging to log (nil means no logging).
func NewReporter(log *zap.Logger) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{log: log}
}

// Warn records a warning-level diagnostic.
func (r *Reporter) Warn(kind DiagnosticKind, label, msg string) {
	r.add(zap.WarnLevel, kind, label, msg)
}

// Error records a diagnostic that indicates an engine bug or corrupt input.
func (r *Reporter) Error(kind DiagnosticKind, label, msg string) {
	r.add(zap.ErrorLevel, kind, label, msg)
}

func (r *Reporter) add(level zapcore.Level, kind DiagnosticKind, label, msg string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.items = append(r.items, Diagnostic{Kind: kind, Message: msg, Label: label})
	r.mu.Unlock()

	if ce := r.log.Check(level, msg); ce != nil {
		ce.Write(zap.String("kind", string(kind)), zap.String("label", label))
	}
}

// Diagnostics returns a copy of everything recorded so far.
func (r *Reporter) Diagnostics() []Diagnostic {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.items))
	copy(out, r.items)
	return out
}

// Count returns the number of diagnostics of the given kind.
func (r *Reporter) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics() {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
