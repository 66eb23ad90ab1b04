package protocol

import "errors"

var (
	// ErrContactNotFound indicates the CRM has no contact with the given id.
	ErrContactNotFound = errors.New("contact not found")

	// ErrListNotFound indicates the list service has no list with the given id.
	ErrListNotFound = errors.New("list not found")
)

// IsContactNotFound checks if an error indicates a contact was not found.
func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}
