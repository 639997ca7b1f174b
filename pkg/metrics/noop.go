package metrics

import "time"

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordOperation(string, string, string)            {}
func (Noop) RecordError(string)                                {}
func (Noop) RecordLatency(string, float64)                     {}
func (Noop) RecordTriggers(int)                                {}
func (Noop) ObserveRequest(string, string, int, time.Duration) {}
