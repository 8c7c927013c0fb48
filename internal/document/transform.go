package document

import (
	"strconv"

	"github.com/goccy/go-json"
	"github.com/jfmyers9/onair/internal/metadata"
)

// SongAttributes are the attributes of a songs resource.
type SongAttributes struct {
	CreatedAt *string `json:"created-at"`
	Name      *string `json:"name"`
	Genre     *string `json:"genre"`
	Time      *int64  `json:"time"`
	Disc      *int    `json:"disc"`
	Track     *int    `json:"track"`
}

// AlbumAttributes are the attributes of an albums resource.
type AlbumAttributes struct {
	Name          *string `json:"name"`
	CreatedAt     *string `json:"created-at"`
	LargeArtwork  *string `json:"large-artwork"`
	MediumArtwork *string `json:"medium-artwork"`
	SmallArtwork  *string `json:"small-artwork"`
	Discs         *int    `json:"discs"`
	Tracks        *int    `json:"tracks"`
}

// ArtistAttributes are the attributes of an artists resource.
type ArtistAttributes struct {
	Name  *string `json:"name"`
	Genre *string `json:"genre"`
}

// Transform maps resolved records into a document. Each record yields one
// song in data and one artist followed by one album in included, in input
// order. Missing record fields become null attributes; a missing artist or
// album id makes that relationship null.
func Transform(records []metadata.Record) Document {
	doc := Document{
		Data:     make([]Resource, 0, len(records)),
		Included: make([]Resource, 0, 2*len(records)),
	}

	for _, rec := range records {
		songID := formatID(rec.TrackID)
		artistID := formatID(rec.ArtistID)
		albumID := formatID(rec.CollectionID)

		artist := Resource{
			Type: TypeArtists,
			ID:   artistID,
			Attributes: mustAttributes(ArtistAttributes{
				Name:  rec.ArtistName,
				Genre: rec.PrimaryGenreName,
			}),
			Relationships: map[string]Relationship{
				"albums": {Data: toMany(TypeAlbums, rec.CollectionID)},
			},
		}

		album := Resource{
			Type: TypeAlbums,
			ID:   albumID,
			Attributes: mustAttributes(AlbumAttributes{
				Name:          rec.CollectionName,
				CreatedAt:     rec.ReleaseDate,
				LargeArtwork:  rec.ArtworkURL100,
				MediumArtwork: rec.ArtworkURL60,
				SmallArtwork:  rec.ArtworkURL30,
				Discs:         rec.DiscCount,
				Tracks:        rec.TrackCount,
			}),
			Relationships: map[string]Relationship{
				"artist": {Data: toOne(TypeArtists, rec.ArtistID)},
				"songs":  {Data: toMany(TypeSongs, rec.TrackID)},
			},
		}

		song := Resource{
			Type: TypeSongs,
			ID:   songID,
			Attributes: mustAttributes(SongAttributes{
				CreatedAt: rec.ReleaseDate,
				Name:      rec.TrackName,
				Genre:     rec.PrimaryGenreName,
				Time:      rec.TrackTimeMillis,
				Disc:      rec.DiscNumber,
				Track:     rec.TrackNumber,
			}),
			Relationships: map[string]Relationship{
				"artist": {Data: toOne(TypeArtists, rec.ArtistID)},
				"album":  {Data: toOne(TypeAlbums, rec.CollectionID)},
			},
		}

		doc.Data = append(doc.Data, song)
		doc.Included = append(doc.Included, artist, album)
	}

	return doc
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func toOne(typ string, id *int64) Linkage {
	if id == nil {
		return ToOne(nil)
	}
	return ToOne(&Identifier{Type: typ, ID: formatID(id)})
}

func toMany(typ string, id *int64) Linkage {
	if id == nil {
		return ToMany()
	}
	return ToMany(Identifier{Type: typ, ID: formatID(id)})
}

// mustAttributes encodes an attributes struct. The structs hold only
// pointers to strings and integers, so encoding cannot fail.
func mustAttributes(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
