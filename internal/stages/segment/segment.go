// Package segment provides the stage that opens most pipelines: one Segment
// span over the whole document.
package segment

import (
	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/stage"
)

// ID is the registry id of the stage.
const ID = "segment"

// DefaultSegmentID is the id attribute given to the document-wide segment.
const DefaultSegmentID = "SIMPLE_SEGMENT"

// Segmenter inserts a single Segment span covering the text.
type Segmenter struct {
	stage.Base
	segmentID string
}

// New returns a segmenter labelling its span with segmentID, or
// DefaultSegmentID when empty.
func New(segmentID string) *Segmenter {
	if segmentID == "" {
		segmentID = DefaultSegmentID
	}
	s := &Segmenter{
		Base: stage.NewBase(stage.Info{
			ID:          ID,
			Name:        "Simple Segmenter",
			Description: "Covers the document with one segment",
			Version:     "1.0.0",
		}),
		segmentID: segmentID,
	}
	s.SetWrites(annotation.TypeSegment)
	return s
}

// Factory accepts a single option, segment_id.
func Factory(opts stage.Config) (stage.Stage, error) {
	if err := opts.RejectUnknown(ID, "segment_id"); err != nil {
		return nil, err
	}
	id, err := opts.String(ID, "segment_id", DefaultSegmentID)
	if err != nil {
		return nil, err
	}
	return New(id), nil
}

// Process inserts the segment. An empty document gets none, since a span
// must cover at least one byte.
func (s *Segmenter) Process(ctx *stage.Context) error {
	if len(ctx.Text) == 0 || ctx.Store.Contains(annotation.TypeSegment, 0, len(ctx.Text)) {
		return nil
	}
	span := annotation.New(annotation.TypeSegment, 0, len(ctx.Text)).
		WithAttributes(annotation.Attributes{annotation.AttrSegmentID: s.segmentID})
	_, err := ctx.Insert(span)
	return err
}
