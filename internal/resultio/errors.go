package resultio

// NotFoundError marks a missing result or trace file for a solve ID,
// mirroring the teacher's store.NotFoundError pattern.
type NotFoundError struct {
	SolveID string
}

func (e *NotFoundError) Error() string {
	if e.SolveID != "" {
		return "result not found: " + e.SolveID
	}
	return "result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
