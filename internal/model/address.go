package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// RawAddress is an address record as returned by the lookup source.
// Nil fields were absent upstream. ID is the upstream identifier and is never
// used as the canonical address id.
type RawAddress struct {
	ID          *string `json:"id,omitempty" yaml:"id"`
	Street      *string `json:"street,omitempty" yaml:"street"`
	HouseNumber *string `json:"houseNumber,omitempty" yaml:"houseNumber"`
	Postcode    *string `json:"postcode,omitempty" yaml:"postcode"`
	City        *string `json:"city,omitempty" yaml:"city"`
	Lat         *string `json:"lat,omitempty" yaml:"lat"`
	Lon         *string `json:"lon,omitempty" yaml:"lon"`
}

// UnmarshalJSON accepts lat, lon and id as either JSON strings or numbers.
// Numbers keep their literal text so "-33.8688" and -33.8688 derive the same id.
func (r *RawAddress) UnmarshalJSON(data []byte) error {
	type alias RawAddress
	aux := struct {
		*alias
		ID  json.RawMessage `json:"id"`
		Lat json.RawMessage `json:"lat"`
		Lon json.RawMessage `json:"lon"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return eris.Wrap(err, "model: decode raw address")
	}

	var err error
	if r.ID, err = looseString(aux.ID); err != nil {
		return eris.Wrap(err, "model: decode raw address id")
	}
	if r.Lat, err = looseString(aux.Lat); err != nil {
		return eris.Wrap(err, "model: decode raw address lat")
	}
	if r.Lon, err = looseString(aux.Lon); err != nil {
		return eris.Wrap(err, "model: decode raw address lon")
	}
	return nil
}

func looseString(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, eris.Errorf("expected string or number, got %s", raw)
	}
	s := n.String()
	return &s, nil
}

// Address is the canonical, immutable address entity. ID is derived from the
// geocoded point, so two lookups returning the same point yield the same ID.
type Address struct {
	ID          string `json:"id"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	Postcode    string `json:"postcode"`
	City        string `json:"city"`
}

// DegradedAddressID is the id of an address whose record carried no coordinates.
const DegradedAddressID = "_"

// Normalize maps a raw record to its canonical Address. It is total: every
// absent field becomes the empty string and the upstream id is ignored.
func Normalize(raw RawAddress) Address {
	return Address{
		ID:          deref(raw.Lat) + "_" + deref(raw.Lon),
		Street:      deref(raw.Street),
		HouseNumber: deref(raw.HouseNumber),
		Postcode:    deref(raw.Postcode),
		City:        deref(raw.City),
	}
}

// NormalizeAll normalizes each record in order. The result is never nil.
func NormalizeAll(raws []RawAddress) []Address {
	out := make([]Address, 0, len(raws))
	for _, r := range raws {
		out = append(out, Normalize(r))
	}
	return out
}

// FindAddress returns the candidate with the given id.
func FindAddress(candidates []Address, id string) (Address, bool) {
	for _, a := range candidates {
		if a.ID == id {
			return a, true
		}
	}
	return Address{}, false
}

// PersonAddress is an address enriched with the identity of the person living there.
type PersonAddress struct {
	Address
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// Entry is a PersonAddress as persisted in the address book.
type Entry struct {
	EntryID string `json:"entryId"`
	PersonAddress
	CreatedAt time.Time `json:"createdAt"`
}
