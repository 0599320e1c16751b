package harness

import "github.com/roach88/qmodel/internal/ir"

// Stage names the step of a scenario run that produced an error.
type Stage string

const (
	StageBuild   Stage = "build"
	StageParse   Stage = "parse"
	StageShape   Stage = "shape"
	StageExecute Stage = "execute"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates every expect check matched.
	Pass bool `json:"pass"`

	// Model is the canonical rendering of the parsed model. Empty when
	// the run failed before parsing finished.
	Model string `json:"model,omitempty"`

	// Shape is the rendered output shape.
	Shape string `json:"shape,omitempty"`

	// QueryID fingerprints Model.
	QueryID string `json:"query_id,omitempty"`

	// Value is the executed result: the items of a sequence or the
	// single value. Nil when the run failed.
	Value ir.IRValue `json:"-"`

	// Err is the first failure, if any, and Stage where it happened.
	Err   error `json:"-"`
	Stage Stage `json:"stage,omitempty"`

	// Errors contains the failed checks. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failed check and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// fail records the first failure of the run.
func (r *Result) fail(stage Stage, err error) {
	r.Stage = stage
	r.Err = err
}
