package workflow

import (
	"context"
	"sync"

	"github.com/sells-group/addressbook-cli/internal/form"
	"github.com/sells-group/addressbook-cli/internal/lookup"
	"github.com/sells-group/addressbook-cli/internal/model"
)

// Form field names used by a Session.
const (
	FieldPostcode        = "postCode"
	FieldHouseNumber     = "houseNumber"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldSelectedAddress = "selectedAddress"
)

// DefaultFields returns the initial form state of a Session.
func DefaultFields() form.Fields {
	return form.Fields{
		FieldPostcode:        "",
		FieldHouseNumber:     "",
		FieldFirstName:       "",
		FieldLastName:        "",
		FieldSelectedAddress: "",
	}
}

// View is a snapshot of everything a Session shows to the user.
type View struct {
	Fields    form.Fields     `json:"fields"`
	State     string          `json:"state"`
	Loading   bool            `json:"loading"`
	Addresses []model.Address `json:"addresses"`
	Error     string          `json:"error,omitempty"`
}

// Session is one user's search, selection and enrichment screen. It owns a
// form store, a search, an enrichment step and a single current error
// message.
type Session struct {
	fields *form.Store
	search *Search
	enrich *Enrichment

	errMu  sync.Mutex
	errMsg string
}

// NewSession creates a Session that looks addresses up through client and
// commits into book.
func NewSession(client lookup.Client, book AddressBook) *Session {
	s := &Session{
		fields: form.New(DefaultFields()),
		enrich: NewEnrichment(book),
	}
	s.search = NewSearch(client, WithSettleHook(func(err error) {
		s.setError(Message(err))
	}))
	return s
}

// Form returns the session's field store.
func (s *Session) Form() *form.Store {
	return s.fields
}

// SetField updates one form field.
func (s *Session) SetField(name, value string) {
	s.fields.Update(name, value)
}

// MergeFields updates several form fields.
func (s *Session) MergeFields(partial form.Fields) {
	s.fields.Merge(partial)
}

// Select marks the address with id as selected.
func (s *Session) Select(id string) {
	s.fields.Update(FieldSelectedAddress, id)
}

// Search clears the selection and identity fields, keeps the search inputs
// and runs a lookup with them.
func (s *Session) Search(ctx context.Context) error {
	s.fields.Merge(form.Fields{
		FieldSelectedAddress: "",
		FieldFirstName:       "",
		FieldLastName:        "",
	})
	s.setError("")

	return s.search.Submit(ctx, s.fields.Get(FieldPostcode), s.fields.Get(FieldHouseNumber))
}

// Commit validates the current fields against the current results and adds
// the composed record to the address book.
func (s *Session) Commit(ctx context.Context) (*model.Entry, error) {
	f := s.fields.Fields()
	id := Identity{
		FirstName:         f[FieldFirstName],
		LastName:          f[FieldLastName],
		SelectedAddressID: f[FieldSelectedAddress],
	}

	entry, err := s.enrich.Commit(ctx, id, s.search.Addresses())
	s.setError(Message(err))
	return entry, err
}

// ClearAll resets fields, results and the error message.
func (s *Session) ClearAll() {
	s.fields.Reset()
	s.search.Clear()
	s.setError("")
}

// Error returns the current error message, or "" if there is none.
func (s *Session) Error() string {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.errMsg
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	snap := s.search.Snapshot()
	addrs := snap.Addresses
	if addrs == nil {
		addrs = []model.Address{}
	}
	return View{
		Fields:    s.fields.Fields(),
		State:     snap.State.String(),
		Loading:   snap.Loading(),
		Addresses: addrs,
		Error:     s.Error(),
	}
}

func (s *Session) setError(msg string) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.errMsg = msg
}
