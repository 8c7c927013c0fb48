package document

import "time"

// Track is a flattened view of one song with its artist and album names
// resolved from included. Missing values are empty.
type Track struct {
	ID       string
	Name     string
	Artist   string
	Album    string
	Genre    string
	Duration time.Duration
	Artwork  string
}

// Tracks flattens the document's songs in order
func (d Document) Tracks() []Track {
	tracks := make([]Track, 0, len(d.Data))
	for _, song := range d.Data {
		var attrs SongAttributes
		_ = song.DecodeAttributes(&attrs)

		t := Track{
			ID:    song.ID,
			Name:  deref(attrs.Name),
			Genre: deref(attrs.Genre),
		}
		if attrs.Time != nil {
			t.Duration = time.Duration(*attrs.Time) * time.Millisecond
		}

		if artist, ok := d.related(song, "artist"); ok {
			var a ArtistAttributes
			_ = artist.DecodeAttributes(&a)
			t.Artist = deref(a.Name)
		}
		if album, ok := d.related(song, "album"); ok {
			var a AlbumAttributes
			_ = album.DecodeAttributes(&a)
			t.Album = deref(a.Name)
			t.Artwork = deref(a.LargeArtwork)
		}

		tracks = append(tracks, t)
	}
	return tracks
}

// related returns the included resource a to-one relationship points at
func (d Document) related(r Resource, name string) (Resource, bool) {
	rel, ok := r.Relationships[name]
	if !ok || rel.Data.IsToMany() {
		return Resource{}, false
	}
	ids := rel.Data.Identifiers()
	if len(ids) != 1 {
		return Resource{}, false
	}
	return d.Find(ids[0])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
