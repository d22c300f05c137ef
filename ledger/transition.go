package ledger

import "eventhub/models"

// checkPair verifies the invariants the transition relies on before anything
// is changed: balanced seats and a registration recorded on both sides or on
// neither.
func checkPair(ev *models.Event, u *models.User) error {
	if !ev.SeatsBalanced() {
		return models.ErrInconsistentState
	}
	if ev.HasRegistrant(u.ID) != u.HasEvent(ev.ID) {
		return models.ErrInconsistentState
	}
	return nil
}

func applyRegister(ev *models.Event, u *models.User) error {
	if err := checkPair(ev, u); err != nil {
		return err
	}
	if ev.HasRegistrant(u.ID) {
		return models.ErrAlreadyRegistered
	}
	if ev.AvailableSeats <= 0 {
		return models.ErrSeatsExhausted
	}

	ev.AvailableSeats--
	ev.RegisteredUsers = append(ev.RegisteredUsers, u.ID)
	u.RegisteredEvents = append(u.RegisteredEvents, ev.ID)
	return nil
}

func applyCancel(ev *models.Event, u *models.User) error {
	if err := checkPair(ev, u); err != nil {
		return err
	}
	if !ev.HasRegistrant(u.ID) {
		return models.ErrNotRegistered
	}

	ev.AvailableSeats++
	ev.RemoveRegistrant(u.ID)
	u.RemoveEvent(ev.ID)
	return nil
}
