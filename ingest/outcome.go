package ingest

// Outcome reports what happened to one entity during a pipeline run.
type Outcome struct {
	EntityID string

	// Success is true for completed runs, including no-content and skipped
	// entities: those are legitimate zero-work results, not failures.
	Success bool

	// NoContent marks entities whose source text was empty.
	NoContent bool

	// Skipped marks entities short-circuited by an unchanged content
	// fingerprint.
	Skipped bool

	SegmentsProcessed int
	VectorsStored     int

	// Stage is the last stage reached; StageDone on success, the failing
	// stage otherwise.
	Stage Stage

	Err error
}

// maxFailureSamples bounds the failure detail carried in a BatchReport.
const maxFailureSamples = 5

// BatchReport aggregates the outcomes of a batch run.
type BatchReport struct {
	Processed int
	Succeeded int
	Failed    int
	NoContent int
	Skipped   int

	// FailureSamples holds up to maxFailureSamples failed outcomes for
	// diagnostics; the full set is in Outcomes.
	FailureSamples []Outcome

	Outcomes []Outcome
}

func (r *BatchReport) add(outcome Outcome) {
	r.Processed++
	r.Outcomes = append(r.Outcomes, outcome)

	switch {
	case !outcome.Success:
		r.Failed++
		if len(r.FailureSamples) < maxFailureSamples {
			r.FailureSamples = append(r.FailureSamples, outcome)
		}
	case outcome.NoContent:
		r.NoContent++
		r.Succeeded++
	case outcome.Skipped:
		r.Skipped++
		r.Succeeded++
	default:
		r.Succeeded++
	}
}
