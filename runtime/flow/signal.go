package flow

import "errors"

// Signal is a control-flow completion carried through an error return.
// Exactly one discriminator method reports true.
type Signal struct {
	Kind  Kind
	Value any
}

// Sentinel messages, one per signal.
const (
	MsgBreak    = "BREAK_SIGNAL"
	MsgContinue = "CONTINUE_SIGNAL"
	MsgHalt     = "HALT_SIGNAL"
	MsgReturn   = "RETURN_SIGNAL"
)

func (s *Signal) Error() string {
	switch s.Kind {
	case KindBreak:
		return MsgBreak
	case KindContinue:
		return MsgContinue
	case KindHalt:
		return MsgHalt
	case KindReturn:
		return MsgReturn
	}
	return "!(BAD SIGNAL: " + s.Kind.String() + ")"
}

func (s *Signal) IsBreak() bool    { return s.Kind == KindBreak }
func (s *Signal) IsContinue() bool { return s.Kind == KindContinue }
func (s *Signal) IsHalt() bool     { return s.Kind == KindHalt }
func (s *Signal) IsReturn() bool   { return s.Kind == KindReturn }

// IsSignal reports whether err carries a control-flow signal.
func IsSignal(err error) bool {
	var sig *Signal
	return errors.As(err, &sig)
}
