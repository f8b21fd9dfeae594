package vm

// MessageType tells what a Message reports.
type MessageType int

const (
	_ MessageType = iota
	MsgOutput // A value was written to the output.
	MsgBreak  // The PC reached a breakpoint.
	MsgHalt   // HALT executed.
	MsgFault  // The machine faulted.
)

func (mt MessageType) String() string {
	switch mt {
	case MsgOutput:
		return "Output"
	case MsgBreak:
		return "Break"
	case MsgHalt:
		return "Halt"
	case MsgFault:
		return "Fault"
	default:
		return "Unknown"
	}
}

// Message is a machine event sent on the WithMessages channel.
type Message struct {
	Type    MessageType
	Addr    uint32
	Message string
}

func NewMessage(mt MessageType, addr uint32, msg string) Message {
	return Message{
		Type:    mt,
		Addr:    addr,
		Message: msg,
	}
}
