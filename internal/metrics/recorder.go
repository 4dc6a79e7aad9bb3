package metrics

import "time"

// Recorder is the subset of Metrics used by services and handlers.
// A nil *Metrics is not a valid Recorder; use Nop instead.
type Recorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordRoute(decision string)
	RecordSiteView()
	RecordSignup(outcome string)
	RecordUpload(operation, outcome string, size int64)
	RecordSweep(removed int)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordRoute(string)                                   {}
func (Nop) RecordSiteView()                                      {}
func (Nop) RecordSignup(string)                                  {}
func (Nop) RecordUpload(string, string, int64)                   {}
func (Nop) RecordSweep(int)                                      {}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = Nop{}
)
