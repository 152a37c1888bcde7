package ingest

// Stage identifies how far an entity progressed through the pipeline.
// Errored absorbs: once an entity fails, its stage records where.
type Stage int

const (
	StageFetched Stage = iota
	StageChunked
	StageEnriched
	StageEmbedded
	StageStored
	StageDone
	StageErrored
)

var stageNames = map[Stage]string{
	StageFetched:  "fetched",
	StageChunked:  "chunked",
	StageEnriched: "enriched",
	StageEmbedded: "embedded",
	StageStored:   "stored",
	StageDone:     "done",
	StageErrored:  "errored",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}
