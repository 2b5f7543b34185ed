package boost

import (
	coreevents "prizeboost/core/events"
)

// TransferOwnership nominates a pending owner. The transfer only completes
// once the nominee accepts, so a typoed address cannot brick the module.
// Nominating the zero address cancels an outstanding nomination.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) error {
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	var zero [20]byte
	if newOwner == zero {
		return e.st.ClearPendingOwner()
	}
	if err := e.st.SetPendingOwner(newOwner); err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostOwnershipPending{
		Owner:   caller,
		Pending: newOwner,
	}.Event())
	return nil
}

// AcceptOwnership completes the handoff. Only the nominated pending owner may
// call it; everyone else fails hard with no state change.
func (e *Engine) AcceptOwnership(caller [20]byte) error {
	pending, ok, err := e.st.PendingOwner()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoPendingOwner
	}
	if caller != pending {
		return ErrNotPendingOwner
	}
	previous, err := e.st.Owner()
	if err != nil {
		return err
	}
	if err := e.st.SetOwner(caller); err != nil {
		return err
	}
	if err := e.st.ClearPendingOwner(); err != nil {
		return err
	}
	e.st.AppendEvent(coreevents.BoostOwnershipTransferred{
		Previous: previous,
		Current:  caller,
	}.Event())
	return nil
}

// Owner returns the current module owner.
func (e *Engine) Owner() ([20]byte, error) {
	return e.st.Owner()
}

// PendingOwner returns the outstanding nomination, if any.
func (e *Engine) PendingOwner() ([20]byte, bool, error) {
	return e.st.PendingOwner()
}
