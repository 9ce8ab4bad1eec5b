package session

import "fmt"

// Mode is the single tag of the try-on state machine.
type Mode int

const (
	Idle Mode = iota
	ChoosingMethod
	LiveCamera
	PhotoReview
)

var modeNames = [...]string{
	Idle:           "idle",
	ChoosingMethod: "choosing_method",
	LiveCamera:     "live_camera",
	PhotoReview:    "photo_review",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func parseMode(s string) Mode {
	for m, name := range modeNames {
		if name == s {
			return Mode(m)
		}
	}
	panic("session: unknown state " + s)
}

// fsm events
const (
	eventStart        = "start"
	eventAttachStream = "attach_stream"
	eventAttachImage  = "attach_image"
	eventCancel       = "cancel"
)
