package domain

import "fmt"

// Recipient is a resolved notification target. Owned by the CRUD layer;
// repositories return it already flattened (membership, contact address,
// response state, opt-outs).
type Recipient struct {
	ID      string
	Name    string
	Address string
	// Admin marks organization admins, the audience for attendance
	// reports and RSVP-change follow-ups.
	Admin bool
	// Responded reports whether the recipient already answered the
	// RSVP for the event the lookup was scoped to.
	Responded bool
	// OptOuts holds kinds the recipient disabled. Absent key = opted in.
	OptOuts map[Kind]bool
}

// OptedIn reports whether the recipient accepts the given kind.
func (r Recipient) OptedIn(kind Kind) bool {
	return !r.OptOuts[kind]
}

func (r Recipient) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: recipient id is required", ErrValidation)
	}
	if r.Address == "" {
		return fmt.Errorf("%w: recipient address is required", ErrValidation)
	}
	return nil
}
