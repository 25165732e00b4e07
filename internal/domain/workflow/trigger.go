package workflow

// Trigger is the direction of a stage move
type Trigger string

const (
	TriggerForward  Trigger = "FORWARD"
	TriggerBackward Trigger = "BACKWARD"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
