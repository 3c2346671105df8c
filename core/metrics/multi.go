package metrics

import "errors"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordLifecycle forwards the event to all sinks and joins their errors.
func (m *MultiSink) RecordLifecycle(ev LifecycleEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordLifecycle(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordNotice forwards notices to sinks implementing NoticeRecorder.
func (m *MultiSink) RecordNotice(ev NoticeEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(NoticeRecorder); ok {
			if err := rec.RecordNotice(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordOfficerLocation forwards positions to sinks implementing
// OfficerLocationRecorder.
func (m *MultiSink) RecordOfficerLocation(ev OfficerLocationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(OfficerLocationRecorder); ok {
			if err := rec.RecordOfficerLocation(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordConnection forwards channel state to sinks implementing
// ConnectionRecorder.
func (m *MultiSink) RecordConnection(ev ConnectionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ConnectionRecorder); ok {
			if err := rec.RecordConnection(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
