// Package document defines the relationship-linked document served to
// readers: a primary list of songs plus the artists and albums they link to.
package document

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Resource types
const (
	TypeSongs   = "songs"
	TypeArtists = "artists"
	TypeAlbums  = "albums"
)

// MediaType is the content type the document is served with.
const MediaType = "application/vnd.api+json"

// Document is a primary list of songs plus the resources they reference.
type Document struct {
	Data     []Resource `json:"data"`
	Included []Resource `json:"included"`
}

// Empty returns the document readers see before anything is published.
func Empty() Document {
	return Document{
		Data:     []Resource{},
		Included: []Resource{},
	}
}

// Resource is one typed entry in a document.
type Resource struct {
	Type          string                  `json:"type"`
	ID            string                  `json:"id"`
	Attributes    json.RawMessage         `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships"`
	Links         Links                   `json:"links"`
}

// Identifier is a {type, id} reference to another resource.
type Identifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Identifier returns the reference other resources use to point at r.
func (r Resource) Identifier() Identifier {
	return Identifier{Type: r.Type, ID: r.ID}
}

// DecodeAttributes unmarshals the resource attributes into v.
func (r Resource) DecodeAttributes(v any) error {
	if len(r.Attributes) == 0 {
		return nil
	}
	return json.Unmarshal(r.Attributes, v)
}

// Links are hyperlink placeholders. They are always empty.
type Links struct {
	Self string `json:"self"`
}

// RelationshipLinks are hyperlink placeholders. They are always empty.
type RelationshipLinks struct {
	Self    string `json:"self"`
	Related string `json:"related"`
}

// Relationship links a resource to one or many others.
type Relationship struct {
	Links RelationshipLinks `json:"links"`
	Data  Linkage           `json:"data"`
}

// Linkage is the data of a relationship: null, a single identifier, or a
// list of identifiers.
type Linkage struct {
	one    *Identifier
	many   []Identifier
	toMany bool
}

// ToOne links to a single resource. A nil id encodes as null.
func ToOne(id *Identifier) Linkage {
	return Linkage{one: id}
}

// ToMany links to a list of resources. No ids encodes as [].
func ToMany(ids ...Identifier) Linkage {
	if ids == nil {
		ids = []Identifier{}
	}
	return Linkage{many: ids, toMany: true}
}

// IsToMany reports whether the linkage is a list.
func (l Linkage) IsToMany() bool {
	return l.toMany
}

// Identifiers returns every referenced identifier.
func (l Linkage) Identifiers() []Identifier {
	if l.toMany {
		return l.many
	}
	if l.one == nil {
		return nil
	}
	return []Identifier{*l.one}
}

func (l Linkage) MarshalJSON() ([]byte, error) {
	if l.toMany {
		return json.Marshal(l.many)
	}
	if l.one == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l.one)
}

func (l *Linkage) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*l = ToOne(nil)
	case len(trimmed) > 0 && trimmed[0] == '[':
		var ids []Identifier
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return err
		}
		*l = ToMany(ids...)
	case len(trimmed) > 0 && trimmed[0] == '{':
		var id Identifier
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*l = ToOne(&id)
	default:
		return fmt.Errorf("document: invalid relationship data %s", trimmed)
	}
	return nil
}

// Find returns the included resource referenced by id.
func (d Document) Find(id Identifier) (Resource, bool) {
	for _, r := range d.Included {
		if r.Type == id.Type && r.ID == id.ID {
			return r, true
		}
	}
	return Resource{}, false
}

// DedupeIncluded returns a copy of d keeping only the first occurrence of
// each included {type, id}.
func DedupeIncluded(d Document) Document {
	seen := make(map[Identifier]struct{}, len(d.Included))
	included := make([]Resource, 0, len(d.Included))
	for _, r := range d.Included {
		key := r.Identifier()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		included = append(included, r)
	}

	data := make([]Resource, len(d.Data))
	copy(data, d.Data)

	return Document{Data: data, Included: included}
}
