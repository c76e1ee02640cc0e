package domain

// WriteStatus reports how a best-effort secondary write went.
type WriteStatus int

const (
	WriteOK WriteStatus = iota
	// WriteSkipped means there was nothing to write.
	WriteSkipped
	WriteFailed
)

func (s WriteStatus) String() string {
	switch s {
	case WriteOK:
		return "ok"
	case WriteSkipped:
		return "skipped"
	case WriteFailed:
		return "failed"
	}
	return "unknown"
}

// SetupReport lists the non-critical schema steps that did not apply.
type SetupReport struct {
	Degraded []SetupStep
}

type SetupStep struct {
	Name string
	Err  error
}

func (r *SetupReport) Fail(name string, err error) {
	r.Degraded = append(r.Degraded, SetupStep{Name: name, Err: err})
}

func (r SetupReport) OK() bool {
	return len(r.Degraded) == 0
}
