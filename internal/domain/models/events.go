package models

// CallAccepted is pushed when a taxi accepted the call numbered Number.
type CallAccepted struct {
	From   string
	Number int
}

// TaxiLocationChanged is pushed while a taxi is assigned.
type TaxiLocationChanged struct {
	Position Position
}

// CallCompleted is pushed when the ride is over.
type CallCompleted struct {
	From string
}

// PollEvents holds at most one event of each kind received in one refresh poll
// or push message. Nil fields mean no event of that kind.
type PollEvents struct {
	CallAccepted  *CallAccepted
	TaxiLocation  *TaxiLocationChanged
	CallCompleted *CallCompleted
}

// Empty reports whether no event is present.
func (e PollEvents) Empty() bool {
	return e.CallAccepted == nil && e.TaxiLocation == nil && e.CallCompleted == nil
}
