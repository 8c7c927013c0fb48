package tunegenie

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// NowPlayingResponse is the feed body.
type NowPlayingResponse struct {
	Response []Entry `json:"response"`
}

type nowPlayingBody struct {
	Response *[]Entry `json:"response"`
}

// Entry is one play in the feed. Other fields of the entry are ignored.
type Entry struct {
	SID SID `json:"sid"`
}

// SID is a store identifier. The feed emits it as a number, a string, or
// null; a missing or null sid is not Valid.
type SID struct {
	Value string
	Valid bool
}

// UnmarshalJSON accepts numbers, strings and null.
func (s *SID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = SID{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = SID{Value: v, Valid: true}
		return nil
	}

	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("tunegenie: sid must be a number, string or null, got %s", data)
	}
	*s = SID{Value: string(data), Valid: true}
	return nil
}

// MarshalJSON writes the sid back as a number when it is numeric.
func (s SID) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(s.Value, 10, 64); err == nil {
		return []byte(s.Value), nil
	}
	return json.Marshal(s.Value)
}
