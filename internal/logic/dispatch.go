package logic

// Dispatcher applies the action mapped to a gesture.
type Dispatcher struct {
	Keys  KeyMap
	Latch *FanLatch
	// Advance requests a manual page advance. It must not block.
	Advance func()
}

// Dispatch looks up and performs the action for g and returns it.
func (d *Dispatcher) Dispatch(g Gesture) Action {
	return d.Perform(d.Keys.Lookup(g))
}

// Perform carries out an action directly. It returns the action performed,
// ActionNone if the action is unknown or its collaborator is missing.
func (d *Dispatcher) Perform(action Action) Action {
	switch ParseAction(string(action)) {
	case ActionSwitch:
		if d.Latch == nil {
			return ActionNone
		}
		d.Latch.Toggle()
		return ActionSwitch
	case ActionSlider:
		if d.Advance == nil {
			return ActionNone
		}
		d.Advance()
		return ActionSlider
	}
	return ActionNone
}
