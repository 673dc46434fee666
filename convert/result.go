package convert

// Status reports the terminal state of a conversion.
type Status int

const (
	Pass Status = iota
	Fail
)

// String returns "pass" or "fail".
func (s Status) String() string {
	if s == Pass {
		return "pass"
	}
	return "fail"
}

// Result holds the outcome of a batch run.
type Result struct {
	Status    Status
	Documents []DocumentResult
}

// Failed reports whether the run ended in failure.
func (r Result) Failed() bool { return r.Status == Fail }

// DocumentResult is the terminal value for one document.
type DocumentResult struct {
	Source   string // document identity: file path or "<stdin>"
	Output   string // destination written on success; empty for stdout
	Status   Status
	Err      error
	Warnings []Warning
}

// WarningType categorizes recoverable conversion issues.
type WarningType string

const (
	WarningReferenceNotFound WarningType = "reference_not_found"
	WarningReferenceRead     WarningType = "reference_read"
)

// Warning represents a non-fatal issue encountered during conversion.
type Warning struct {
	Type    WarningType
	Message string
}
