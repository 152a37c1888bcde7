package core

// Segment is a bounded slice of source text destined for one embedding vector.
// Segments are transient: they exist only for the duration of a pipeline run.
type Segment struct {
	Text          string
	Index         int // zero-based, contiguous within one entity's segment list
	TotalSegments int // set in a second pass once splitting completes
	Metadata      map[string]any
}

// EmbeddedSegment is a Segment with its embedding vector attached.
// The vector length always equals the globally configured dimension.
type EmbeddedSegment struct {
	Segment
	Vector []float32
}

// VectorRecord is the persisted form of an embedded segment.
// It is created on first ingestion, replaced on reprocessing (same ID),
// and removed only by an explicit delete.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// BuildingRecord is a nested sub-record of a landmark: one physical
// structure covered by the designation.
type BuildingRecord struct {
	Name      string
	Address   string
	BBL       string
	BIN       string
	Block     string
	Lot       string
	Latitude  float64
	Longitude float64
}

// IsEmpty reports whether the building carries no usable fields.
// Entirely empty buildings are dropped during flattening and do not
// count toward building_count.
func (b *BuildingRecord) IsEmpty() bool {
	return b.Name == "" && b.Address == "" && b.BBL == "" && b.BIN == "" &&
		b.Block == "" && b.Lot == "" && b.Latitude == 0 && b.Longitude == 0
}

// LandmarkRecord is the entity record supplied by a collaborator.
// Known fields are typed; anything else the backing store returns lands
// in Extra. ToMap merges both, so callers never introspect the struct.
//
// Pointer fields distinguish "absent" from "empty string": a nil pointer
// is a true null and is filtered before metadata reaches the index.
type LandmarkRecord struct {
	ID             string
	Name           string
	Borough        string
	ObjectType     string
	Style          *string
	Architect      *string
	Neighborhood   *string
	DesignatedDate *string
	Buildings      []BuildingRecord
	Extra          map[string]any
}

// ToMap returns the record's scalar fields as a flat map.
// Nil pointer fields are emitted as untyped nils so the enricher's
// null filter can drop them; Extra values are copied verbatim.
// Buildings are not included; the enricher flattens them separately.
func (r *LandmarkRecord) ToMap() map[string]any {
	m := make(map[string]any, 8+len(r.Extra))
	m["name"] = r.Name
	m["borough"] = r.Borough
	m["object_type"] = r.ObjectType
	m["style"] = deref(r.Style)
	m["architect"] = deref(r.Architect)
	m["neighborhood"] = deref(r.Neighborhood)
	m["designated_date"] = deref(r.DesignatedDate)
	for k, v := range r.Extra {
		m[k] = v
	}
	return m
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Metadata keys shared across the pipeline stages.
const (
	KeyLandmarkID   = "landmark_id"
	KeyChunkIndex   = "chunk_index"
	KeyTotalChunks  = "total_chunks"
	KeySourceType   = "source_type"
	KeyContentHash  = "content_hash"
	KeyArticleTitle = "article_title"
)
