package executor

// Category classifies a tool failure for recovery-strategy selection.
// Assigned once at the supervisor boundary, never re-categorized
// downstream.
type Category int

const (
	CategoryUnknown Category = iota

	// CategoryCode covers compilation, syntax and dependency errors.
	// Candidates for the recovery engine.
	CategoryCode

	// CategoryPermission covers access-denied failures. Never retried or
	// auto-fixed; the permission gate should have decided before dispatch,
	// so a failure here means the decision went stale mid-flight.
	CategoryPermission

	// CategoryNetwork covers connectivity failures. Transient ones are
	// retried transparently inside the supervisor.
	CategoryNetwork

	// CategoryResource covers disk, memory and missing-file failures.
	CategoryResource
)

func (c Category) String() string {
	switch c {
	case CategoryCode:
		return "code"
	case CategoryPermission:
		return "permission"
	case CategoryNetwork:
		return "network"
	case CategoryResource:
		return "resource"
	default:
		return "unknown"
	}
}

// CategorizedError is a tool failure tagged with its category and, where
// the rule set could extract them, a subtype and the resource involved.
type CategorizedError struct {
	Category Category

	// Subtype refines the category, e.g. "missing_dependency",
	// "disk_full". Empty when the rule set has nothing more specific.
	Subtype string

	// Resource is the path or host extracted from the error text, if any.
	Resource string

	// Transient is set for network failures the supervisor may retry.
	Transient bool

	// Message is the raw error text as observed at the boundary.
	Message string
}

func (e *CategorizedError) Error() string { return e.Message }

// Retriable reports whether the supervisor may retry this failure itself.
func (e *CategorizedError) Retriable() bool {
	return e.Category == CategoryNetwork && e.Transient
}

// AutoFixable reports whether the failure should be offered to the
// recovery engine.
func (e *CategorizedError) AutoFixable() bool {
	return e.Category == CategoryCode || e.Category == CategoryResource
}
