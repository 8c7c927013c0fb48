package itunes

// LookupResponse is the body returned by the Lookup API.
type LookupResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Record `json:"results"`
}

// Record is a single lookup result. All fields are optional.
type Record struct {
	WrapperType      *string `json:"wrapperType,omitempty"`
	TrackID          *int64  `json:"trackId,omitempty"`
	CollectionID     *int64  `json:"collectionId,omitempty"`
	ArtistID         *int64  `json:"artistId,omitempty"`
	TrackName        *string `json:"trackName,omitempty"`
	CollectionName   *string `json:"collectionName,omitempty"`
	ArtistName       *string `json:"artistName,omitempty"`
	PrimaryGenreName *string `json:"primaryGenreName,omitempty"`
	ReleaseDate      *string `json:"releaseDate,omitempty"`
	ArtworkURL100    *string `json:"artworkUrl100,omitempty"`
	ArtworkURL60     *string `json:"artworkUrl60,omitempty"`
	ArtworkURL30     *string `json:"artworkUrl30,omitempty"`
	DiscCount        *int    `json:"discCount,omitempty"`
	TrackCount       *int    `json:"trackCount,omitempty"`
	DiscNumber       *int    `json:"discNumber,omitempty"`
	TrackNumber      *int    `json:"trackNumber,omitempty"`
	TrackTimeMillis  *int64  `json:"trackTimeMillis,omitempty"`
}

// StringValue dereferences an optional string field, returning "" if absent.
func (r Record) StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
