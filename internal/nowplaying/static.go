package nowplaying

import "context"

// RecordedIDs is a pre-recorded KNDD feed, used for offline runs.
var RecordedIDs = []TrackID{
	"941366737",
	"1052966705",
	"547449577",
	"807600196",
	"1061243229",
	"988868008",
	"1049012545",
	"936832277",
	"1032583597",
	"974485474",
	"1022164261",
	"973556123",
}

// StaticSource returns a fixed list of identifiers without any network access.
type StaticSource struct {
	ids []TrackID
}

// NewStaticSource creates a source that always returns ids. A nil ids uses
// RecordedIDs.
func NewStaticSource(ids []TrackID) *StaticSource {
	if ids == nil {
		ids = RecordedIDs
	}
	return &StaticSource{ids: ids}
}

// Fetch returns a copy of the configured identifiers.
func (s *StaticSource) Fetch(ctx context.Context) ([]TrackID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]TrackID, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

func (s *StaticSource) Name() string {
	return "static"
}
