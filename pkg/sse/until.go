package sse

// Until passes events through unchanged and ends the stream at the first
// event the detector fires for. That event is not emitted.
type Until struct {
	detector TerminateDetector
}

// NewUntil returns an Until stage. A nil detector never fires.
func NewUntil(detector TerminateDetector) *Until {
	return &Until{detector: detector}
}

func (u *Until) Transform(ev Event, c *Controller[Event]) error {
	if u.detector != nil && u.detector(ev) {
		c.Terminate()
		return nil
	}
	return c.Enqueue(ev)
}

func (u *Until) Flush(_ *Controller[Event]) error {
	return nil
}

// TakeUntil pipes events through a new Until stage.
func TakeUntil(events *Stream[Event], detector TerminateDetector) *Stream[Event] {
	return Pipe[Event, Event](events, NewUntil(detector))
}

// AnyDetector fires when any of the given detectors fires. Nil detectors are
// skipped; with none left it returns nil.
func AnyDetector(detectors ...TerminateDetector) TerminateDetector {
	var active []TerminateDetector
	for _, d := range detectors {
		if d != nil {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return nil
	}

	return func(ev Event) bool {
		for _, d := range active {
			if d(ev) {
				return true
			}
		}
		return false
	}
}
