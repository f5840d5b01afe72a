package harness

// Result is the outcome of a test scenario execution.
type Result struct {
	// Passed indicates overall test success.
	// True if every expectation matched.
	Passed bool `json:"passed"`

	// Errors contains expectation failures, one message each.
	// Empty if Passed is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshot captures the final record for golden comparison.
	// Nil when a step failed before any record was produced.
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Snapshot is the golden form of a scenario's final state. It lists every
// array leaf of the final record in flatten order.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Record   string         `json:"record"`
	Selected *int           `json:"selected,omitempty"`
	Dropped  *int           `json:"dropped,omitempty"`
	FillMask []bool         `json:"fill_mask,omitempty"`
	Error    string         `json:"error,omitempty"`
	Leaves   []LeafSnapshot `json:"leaves"`
}

// LeafSnapshot is one array leaf.
type LeafSnapshot struct {
	Path  string    `json:"path"`
	DType string    `json:"dtype"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Passed: true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Passed = false
}
