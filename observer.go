package modbus

// RowObserver receives per-poll side effects without the register
// decoder needing to know about them, keeping the decoder pure
// (spec.md §9's observer-interface redesign note).
type RowObserver interface {
	OnRow(values []Value)
	OnError(err *ErrorRecord)
}

// multiObserver fans a single poll outcome out to several observers,
// e.g. a CSV sink plus a progress printer.
type multiObserver struct {
	observers []RowObserver
}

// NewMultiObserver combines observers into one RowObserver.
func NewMultiObserver(observers ...RowObserver) RowObserver {
	return &multiObserver{observers: observers}
}

func (m *multiObserver) OnRow(values []Value) {
	for _, o := range m.observers {
		o.OnRow(values)
	}
}

func (m *multiObserver) OnError(err *ErrorRecord) {
	for _, o := range m.observers {
		o.OnError(err)
	}
}
