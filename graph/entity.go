package graph

// Entity type constants used during extraction and storage. The set is an
// open enum: extractors may return types outside this list and they are
// stored verbatim.
const (
	EntityPerson     = "person"
	EntityOrg        = "organization"
	EntityLocation   = "location"
	EntityTechnology = "technology"
	EntityConcept    = "concept"
	EntityEvent      = "event"
	EntityTime       = "time"
)

// Entity is a node in the knowledge graph. ID is a content hash over the
// normalized (name, type) pair, so the same real-world entity extracted
// twice collapses to one node. Entities are merge-only: re-extraction may
// lengthen Name or Description but never removes anything.
type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Relation is an edge in the knowledge graph. The uniqueness key is the
// triple (SourceID, Label, TargetID). The key is direction-sensitive: a
// reverse-direction edge with the same label is a distinct relation. The
// graph is traversed undirected, but edges keep the direction the
// extractor observed.
type Relation struct {
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	Label      string `json:"label"`
	SourceName string `json:"source_name"`
	TargetName string `json:"target_name"`
}

// Key returns the deduplication key for the relation.
func (r Relation) Key() RelationKey {
	return RelationKey{Source: r.SourceID, Label: r.Label, Target: r.TargetID}
}

// RelationKey identifies a relation by (source, label, target).
type RelationKey struct {
	Source string
	Label  string
	Target string
}

// ExtractedEntity is what the extractor returns for a single entity.
type ExtractedEntity struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ExtractedRelation is what the extractor returns for a single relation.
// Endpoints are plain names; the engine resolves them to entity IDs.
type ExtractedRelation struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"relation"`
}

// ExtractionResult holds the extractor's structured output for one round.
type ExtractionResult struct {
	Entities  []ExtractedEntity   `json:"entities"`
	Relations []ExtractedRelation `json:"relations"`
}

// Empty reports whether the extraction produced nothing usable.
func (r ExtractionResult) Empty() bool {
	return len(r.Entities) == 0 && len(r.Relations) == 0
}
