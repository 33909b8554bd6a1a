package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/addressbook-cli/internal/model"
)

// AddressBook receives committed records. It owns storage and dedup policy.
type AddressBook interface {
	Add(ctx context.Context, rec model.PersonAddress) (*model.Entry, error)
}

// Identity holds the enrichment form values.
type Identity struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	SelectedAddressID string `json:"selectedAddressId"`
}

// Compose validates id against candidates and builds the record to commit.
// Checks run in order and the first failure wins: names present after
// trimming, then a selection with candidates, then a matching candidate.
// Names are stored as entered; trimming only decides emptiness.
func Compose(id Identity, candidates []model.Address) (model.PersonAddress, error) {
	if strings.TrimSpace(id.FirstName) == "" || strings.TrimSpace(id.LastName) == "" {
		return model.PersonAddress{}, &ValidationError{Kind: MissingIdentity}
	}
	if id.SelectedAddressID == "" || len(candidates) == 0 {
		return model.PersonAddress{}, &ValidationError{Kind: NoSelection}
	}
	addr, ok := model.FindAddress(candidates, id.SelectedAddressID)
	if !ok {
		return model.PersonAddress{}, &ValidationError{Kind: AddressNotFound}
	}
	return model.PersonAddress{
		Address:   addr,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	}, nil
}

// Enrichment validates a selection and commits it to an address book.
type Enrichment struct {
	book AddressBook
}

// NewEnrichment creates an Enrichment that commits into book.
func NewEnrichment(book AddressBook) *Enrichment {
	return &Enrichment{book: book}
}

// Commit composes the record and adds it to the address book exactly once.
// It returns a *ValidationError or *StoreError on failure.
func (e *Enrichment) Commit(ctx context.Context, id Identity, candidates []model.Address) (*model.Entry, error) {
	rec, err := Compose(id, candidates)
	if err != nil {
		return nil, err
	}

	entry, err := e.book.Add(ctx, rec)
	if err != nil {
		zap.L().Error("enrich: address book add failed",
			zap.String("address_id", rec.ID),
			zap.Error(err),
		)
		return nil, &StoreError{Err: err}
	}

	zap.L().Info("enrich: address committed",
		zap.String("address_id", rec.ID),
		zap.String("entry_id", entry.EntryID),
	)
	return entry, nil
}
