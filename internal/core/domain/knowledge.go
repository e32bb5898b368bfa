package domain

// TrustTier ranks knowledge stores by editorial trust.
type TrustTier string

const (
	TrustCuratedQA          TrustTier = "curated_qa"
	TrustStructuredProtocol TrustTier = "structured_protocol"
	TrustGenericChunk       TrustTier = "generic_chunk"
)

// SourceReliability maps a trust tier to its reliability factor.
func (t TrustTier) SourceReliability() float64 {
	switch t {
	case TrustCuratedQA:
		return 0.95
	case TrustStructuredProtocol:
		return 0.85
	case TrustGenericChunk:
		return 0.6
	default:
		return 0.5
	}
}

// BBox is a bounding box on a document page, in page coordinate space.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// SpanBBox pairs a character range in a record's text with the bounding box
// the ingestion pipeline computed for it.
type SpanBBox struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Page  int  `json:"page"`
	BBox  BBox `json:"bbox"`
}

// KnowledgeRecord is one retrievable unit from any knowledge store.
type KnowledgeRecord struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	SourceName string     `json:"source_name"`
	Category   Category   `json:"category,omitempty"`
	Text       string     `json:"text"`
	Page       int        `json:"page,omitempty"`
	Trust      TrustTier  `json:"trust"`
	SpanIndex  []SpanBBox `json:"span_index,omitempty"`
	Score      float64    `json:"score"`
}

// DocumentRef points at a stored document resolved by the form index.
type DocumentRef struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}
