package types

import (
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/prefixload/errors"
)

// Action is the upload decision taken for a candidate.
type Action int

const (
	// ActionSkip leaves the remote object untouched
	ActionSkip Action = iota

	// ActionPutWhole uploads the file with a single PutObject
	ActionPutWhole

	// ActionPutChunked uploads the file through a multipart session
	ActionPutChunked
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionPutWhole:
		return "put_whole"
	case ActionPutChunked:
		return "put_chunked"
	}
	return "unknown"
}

// Decision is the planner's verdict for one candidate.
type Decision struct {
	Action Action

	// Plan is the part layout; a single part for ActionPutWhole
	Plan ChunkPlan

	// Fingerprint is set when planning had to hash the file
	Fingerprint *Fingerprint

	// Reason describes why this decision was taken
	Reason string
}

// Status is the final state of a candidate.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"

	// StatusPlanned marks an upload that a dry run decided but did not perform
	StatusPlanned Status = "planned"
)

// Outcome records what happened to one candidate.
type Outcome struct {
	Candidate Candidate
	Action    Action
	Status    Status
	Err       error
	Bytes     int64
	Duration  time.Duration
}

// RuleStats aggregates outcomes per rule.
type RuleStats struct {
	Rule     Rule
	Matched  int
	Uploaded int
	Skipped  int
	Failed   int
	Planned  int
}

// Report accumulates per-rule results during a run. It is safe for concurrent use;
// callers read it after the run has finished.
type Report struct {
	mu       sync.Mutex
	rules    []RuleStats
	outcomes []Outcome

	// RunID identifies the run in logs
	RunID string

	// Started is when the run began
	Started time.Time

	// Duration is how long the run took
	Duration time.Duration
}

// NewReport creates an empty report with one entry per rule.
func NewReport(rules []Rule) *Report {
	stats := make([]RuleStats, len(rules))
	for i, r := range rules {
		stats[i].Rule = r
	}
	return &Report{
		rules:   stats,
		Started: time.Now(),
	}
}

// AddMatched counts a candidate selected by the rule at ruleIndex.
func (r *Report) AddMatched(ruleIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ruleIndex >= 0 && ruleIndex < len(r.rules) {
		r.rules[ruleIndex].Matched++
	}
}

// Record stores a final outcome.
func (r *Report) Record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes = append(r.outcomes, o)

	i := o.Candidate.RuleIndex
	if i < 0 || i >= len(r.rules) {
		return
	}
	switch o.Status {
	case StatusUploaded:
		r.rules[i].Uploaded++
	case StatusSkipped:
		r.rules[i].Skipped++
	case StatusFailed:
		r.rules[i].Failed++
	case StatusPlanned:
		r.rules[i].Planned++
	}
}

// Rules returns a copy of the per-rule statistics in rule order.
func (r *Report) Rules() []RuleStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RuleStats, len(r.rules))
	copy(out, r.rules)
	return out
}

// Outcomes returns a copy of all recorded outcomes in completion order.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Totals sums statistics over all rules.
func (r *Report) Totals() RuleStats {
	var t RuleStats
	for _, s := range r.Rules() {
		t.Matched += s.Matched
		t.Uploaded += s.Uploaded
		t.Skipped += s.Skipped
		t.Failed += s.Failed
		t.Planned += s.Planned
	}
	return t
}

// BytesUploaded sums the sizes of uploaded files.
func (r *Report) BytesUploaded() int64 {
	var n int64
	for _, o := range r.Outcomes() {
		if o.Status == StatusUploaded {
			n += o.Bytes
		}
	}
	return n
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes() {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// IntegrityFailures counts failures caused by checksum mismatches after upload.
func (r *Report) IntegrityFailures() int {
	n := 0
	for _, o := range r.Failures() {
		if errors.IsIntegrity(o.Err) {
			n++
		}
	}
	return n
}

// EventType identifies a candidate transition reported to a ProgressFunc.
type EventType int

const (
	// EventStart fires when a candidate begins processing
	EventStart EventType = iota

	// EventDecision fires once the planner has decided
	EventDecision

	// EventComplete fires with the final outcome
	EventComplete
)

// ProgressEvent describes a candidate transition.
type ProgressEvent struct {
	Type      EventType
	Candidate Candidate

	// Decision is set for EventDecision
	Decision *Decision

	// Outcome is set for EventComplete
	Outcome *Outcome
}

// ProgressFunc receives candidate transitions. It must not block for long;
// it may be called from several goroutines at once.
type ProgressFunc func(ProgressEvent)
