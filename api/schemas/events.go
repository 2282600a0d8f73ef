package schemas

import "time"

// -- Progress Event Channel --
//
// The orchestrators report progress through a caller supplied Emitter. Every
// event is a small JSON-serializable struct with a Type discriminator, so a
// transport layer can forward them verbatim (e.g. as SSE frames).

// EventType discriminates the progress event union.
type EventType string

const (
	EventLog            EventType = "log"
	EventProgress       EventType = "progress"
	EventViolation      EventType = "violation"
	EventPageProgress   EventType = "page_progress"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
	EventSessionExpired EventType = "session_expired"
)

// Event is implemented by every member of the progress event union.
type Event interface {
	Kind() EventType
}

// Emitter receives progress events synchronously, one call per event.
// A nil Emitter is valid and discards everything.
type Emitter func(Event)

// Emit is a nil-safe dispatch helper.
func (e Emitter) Emit(ev Event) {
	if e != nil {
		e(ev)
	}
}

// LogEvent is a free form log line for the caller's activity feed.
type LogEvent struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLogEvent(msg string) LogEvent {
	return LogEvent{Type: EventLog, Message: msg, Timestamp: time.Now().UTC()}
}

func (LogEvent) Kind() EventType { return EventLog }

// ProgressEvent reports step N of M inside a single page analysis.
type ProgressEvent struct {
	Type     EventType `json:"type"`
	Step     int       `json:"step"`
	Total    int       `json:"total"`
	StepName string    `json:"stepName"`
}

func NewProgressEvent(step, total int, name string) ProgressEvent {
	return ProgressEvent{Type: EventProgress, Step: step, Total: total, StepName: name}
}

func (ProgressEvent) Kind() EventType { return EventProgress }

// ViolationEvent streams one normalized violation as it is discovered.
type ViolationEvent struct {
	Type   EventType   `json:"type"`
	Rule   string      `json:"rule"`
	Impact ImpactLevel `json:"impact,omitempty"`
	Count  int         `json:"count"`
}

func NewViolationEvent(rule string, impact ImpactLevel, count int) ViolationEvent {
	return ViolationEvent{Type: EventViolation, Rule: rule, Impact: impact, Count: count}
}

func (ViolationEvent) Kind() EventType { return EventViolation }

// PageStatus is the lifecycle state reported for one URL of a batch.
type PageStatus string

const (
	PageStarted   PageStatus = "started"
	PageAnalyzing PageStatus = "analyzing"
	PageCompleted PageStatus = "completed"
	PageFailed    PageStatus = "failed"
)

// PageProgressEvent brackets the analysis of one URL within a batch.
type PageProgressEvent struct {
	Type       EventType  `json:"type"`
	PageIndex  int        `json:"pageIndex"`
	TotalPages int        `json:"totalPages"`
	PageURL    string     `json:"pageUrl"`
	PageTitle  string     `json:"pageTitle,omitempty"`
	Status     PageStatus `json:"status"`
}

func NewPageProgressEvent(index, total int, url string, status PageStatus) PageProgressEvent {
	return PageProgressEvent{
		Type:       EventPageProgress,
		PageIndex:  index,
		TotalPages: total,
		PageURL:    url,
		Status:     status,
	}
}

func (PageProgressEvent) Kind() EventType { return EventPageProgress }

// CompleteEvent delivers the final report at the end of a run.
type CompleteEvent struct {
	Type   EventType            `json:"type"`
	Report *AccessibilityReport `json:"report"`
}

func NewCompleteEvent(report *AccessibilityReport) CompleteEvent {
	return CompleteEvent{Type: EventComplete, Report: report}
}

func (CompleteEvent) Kind() EventType { return EventComplete }

// ErrorEvent reports a fatal run-level failure.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code"`
}

func NewErrorEvent(msg, code string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: msg, Code: code}
}

func (ErrorEvent) Kind() EventType { return EventError }

// SessionExpiredEvent signals that an authenticated session stopped being
// honored mid-run (e.g. the page bounced to a login screen).
type SessionExpiredEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func NewSessionExpiredEvent(msg string) SessionExpiredEvent {
	return SessionExpiredEvent{Type: EventSessionExpired, Message: msg}
}

func (SessionExpiredEvent) Kind() EventType { return EventSessionExpired }
