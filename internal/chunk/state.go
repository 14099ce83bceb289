package chunk

// State is the lifecycle stage of an editable document.
type State int

const (
	Unparsed State = iota
	Parsing
	Parsed
	Mutated
	Serialized
)

func (s State) String() string {
	switch s {
	case Unparsed:
		return "unparsed"
	case Parsing:
		return "parsing"
	case Parsed:
		return "parsed"
	case Mutated:
		return "mutated"
	case Serialized:
		return "serialized"
	default:
		return "unknown"
	}
}

// Lifecycle tracks the state of a document. The zero value is Unparsed.
type Lifecycle struct {
	state State
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// BeginParse moves to Parsing.
func (l *Lifecycle) BeginParse() {
	l.state = Parsing
}

// EndParse moves to Parsed.
func (l *Lifecycle) EndParse() {
	l.state = Parsed
}

// Editable returns ErrFinalized once the document has been serialized.
func (l *Lifecycle) Editable() error {
	if l.state == Serialized {
		return ErrFinalized
	}
	return nil
}

// Mutate records a successful edit.
func (l *Lifecycle) Mutate() {
	l.state = Mutated
}

// Finish moves to the terminal Serialized state.
func (l *Lifecycle) Finish() {
	l.state = Serialized
}
