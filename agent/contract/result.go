package contract

// ErrorKind classifies how an intake step ended.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindDuplicateKey    ErrorKind = "duplicate_key"
	KindLookupDegraded  ErrorKind = "lookup_degraded"
	KindDispatchFailure ErrorKind = "dispatch_failure"
	KindStorageFailure  ErrorKind = "storage_failure"
	KindValidation      ErrorKind = "validation"
)

// severity orders kinds so merged results keep the worst one.
var severity = map[ErrorKind]int{
	KindNone:            0,
	KindDuplicateKey:    1,
	KindLookupDegraded:  2,
	KindDispatchFailure: 3,
	KindStorageFailure:  4,
	KindValidation:      5,
}

// Result is the explicit outcome of a step. Absorbed kinds (duplicate key,
// degraded lookup) still count as OK.
type Result struct {
	Kind ErrorKind
	Err  error
}

func Success() Result {
	return Result{}
}

func Failure(kind ErrorKind, err error) Result {
	return Result{Kind: kind, Err: err}
}

func (r Result) OK() bool {
	switch r.Kind {
	case KindNone, KindDuplicateKey, KindLookupDegraded:
		return true
	default:
		return false
	}
}

// Degraded reports an OK result that absorbed a failure on the way.
func (r Result) Degraded() bool {
	return r.OK() && r.Kind != KindNone
}

func (r Result) Merge(other Result) Result {
	if severity[other.Kind] > severity[r.Kind] {
		return other
	}
	return r
}

func (r Result) String() string {
	if r.Kind == KindNone {
		return "ok"
	}
	if r.Err == nil {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + r.Err.Error()
}
