// Package fetcher reads and writes address book rows as CSV and XLSX.
package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// Column names, in export order.
const (
	ColFirstName   = "first_name"
	ColLastName    = "last_name"
	ColStreet      = "street"
	ColHouseNumber = "house_number"
	ColPostcode    = "postcode"
	ColCity        = "city"
	ColAddressID   = "address_id"
)

// Columns is the header written on export.
var Columns = []string{
	ColFirstName, ColLastName, ColStreet, ColHouseNumber, ColPostcode, ColCity, ColAddressID,
}

// columnIndex maps a column name to its position in a row.
type columnIndex map[string]int

// indexHeader resolves column positions from a header row. Names are matched
// case-insensitively and unknown columns are ignored.
func indexHeader(header []string) (columnIndex, error) {
	ix := make(columnIndex, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := ix[name]; !dup {
			ix[name] = i
		}
	}
	for _, required := range []string{ColFirstName, ColLastName} {
		if _, ok := ix[required]; !ok {
			return nil, eris.Errorf("fetcher: header missing %q column", required)
		}
	}
	return ix, nil
}

func (ix columnIndex) get(row []string, col string) string {
	i, ok := ix[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// record converts a data row. line is used in error messages only.
func (ix columnIndex) record(row []string, line int) (model.PersonAddress, error) {
	rec := model.PersonAddress{
		Address: model.Address{
			ID:          ix.get(row, ColAddressID),
			Street:      ix.get(row, ColStreet),
			HouseNumber: ix.get(row, ColHouseNumber),
			Postcode:    ix.get(row, ColPostcode),
			City:        ix.get(row, ColCity),
		},
		FirstName: ix.get(row, ColFirstName),
		LastName:  ix.get(row, ColLastName),
	}
	if strings.TrimSpace(rec.FirstName) == "" || strings.TrimSpace(rec.LastName) == "" {
		return model.PersonAddress{}, eris.Errorf("fetcher: line %d: first_name and last_name are required", line)
	}
	if rec.ID == "" {
		rec.ID = model.DegradedAddressID
	}
	return rec, nil
}

// recordRow is the inverse of record, in Columns order.
func recordRow(rec model.PersonAddress) []string {
	return []string{
		rec.FirstName, rec.LastName, rec.Street, rec.HouseNumber, rec.Postcode, rec.City, rec.ID,
	}
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
