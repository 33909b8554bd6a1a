package workflow

import (
	"errors"

	"github.com/rotisserie/eris"
)

// User-facing messages for each failure class.
const (
	MsgFetchFailed     = "Failed to fetch addresses. Please try again."
	MsgServerDefault   = "An error occurred while fetching addresses"
	MsgMissingIdentity = "First name and last name fields mandatory!"
	MsgNoSelection     = "No address selected, try to select an address or find one if you haven't"
	MsgAddressNotFound = "Selected address not found"
	MsgSaveFailed      = "Failed to save address. Please try again."
)

// ErrSuperseded is returned by a search whose response arrived after a newer
// submit. Its result is discarded.
var ErrSuperseded = eris.New("workflow: search superseded by a newer submit")

// TransportError is a network or decode failure talking to the lookup endpoint.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "workflow: lookup transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is a well-formed failure response from the lookup endpoint.
type ServerError struct {
	Message    string
	HTTPStatus int
}

func (e *ServerError) Error() string {
	return "workflow: lookup failed: " + e.Message
}

// ValidationKind identifies which commit check failed.
type ValidationKind int

const (
	MissingIdentity ValidationKind = iota + 1
	NoSelection
	AddressNotFound
)

func (k ValidationKind) String() string {
	switch k {
	case MissingIdentity:
		return "missing_identity"
	case NoSelection:
		return "no_selection"
	case AddressNotFound:
		return "address_not_found"
	default:
		return "unknown"
	}
}

func (k ValidationKind) message() string {
	switch k {
	case MissingIdentity:
		return MsgMissingIdentity
	case NoSelection:
		return MsgNoSelection
	case AddressNotFound:
		return MsgAddressNotFound
	default:
		return "validation failed"
	}
}

// ValidationError is a failed commit precondition.
type ValidationError struct {
	Kind ValidationKind
}

func (e *ValidationError) Error() string {
	return "workflow: " + e.Kind.String() + ": " + e.Kind.message()
}

// StoreError is a failure handing a record to the address book.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "workflow: address book add: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError of the given kind.
func IsValidation(err error, kind ValidationKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

// Message maps err to the text shown to the user. A nil error maps to "".
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		ve *ValidationError
		se *ServerError
		te *TransportError
		st *StoreError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Kind.message()
	case errors.As(err, &se):
		if se.Message == "" {
			return MsgServerDefault
		}
		return se.Message
	case errors.As(err, &te):
		return MsgFetchFailed
	case errors.As(err, &st):
		return MsgSaveFailed
	default:
		return MsgFetchFailed
	}
}
