package ledger

// Severity ranks a policy violation.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Severe reports whether the severity forces the EXCEPTION path.
func (s Severity) Severe() bool { return s == SeverityError || s == SeverityCritical }

// Violation codes.
const (
	ViolationMissingCategory  = "missing_category"
	ViolationMissingEvidence  = "missing_evidence"
	ViolationSpendCapExceeded = "spend_cap_exceeded"
	ViolationZeroAmount       = "zero_amount"
)

// Violation is a policy rule the transaction does not satisfy.
type Violation struct {
	Code       string   `json:"code"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Overridden bool     `json:"overridden,omitempty"`
}

// Blocking reports whether the violation still prevents resolution.
func (v Violation) Blocking() bool { return v.Severity.Severe() && !v.Overridden }
