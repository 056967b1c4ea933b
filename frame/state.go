package frame

import "fmt"

// State is a step of one frame-loop iteration.
type State int

const (
	WaitPriorFrame State = iota
	AcquireImage
	RecreateAndRetry
	RecordAndSubmit
	Present
	Advance
)

var stateNames = map[State]string{
	WaitPriorFrame:   "WaitPriorFrame",
	AcquireImage:     "AcquireImage",
	RecreateAndRetry: "RecreateAndRetry",
	RecordAndSubmit:  "RecordAndSubmit",
	Present:          "Present",
	Advance:          "Advance",
}

func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return name
}

// Status is the outcome of an acquire or present that did not fail outright.
type Status int

const (
	Success Status = iota
	// Suboptimal still presents, but the swapchain should be rebuilt afterwards.
	Suboptimal
	// OutOfDate means the swapchain can no longer be used at all.
	OutOfDate
)

func (s Status) String() string {
	switch s {
	case Success:
		return "Success"
	case Suboptimal:
		return "Suboptimal"
	case OutOfDate:
		return "OutOfDate"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}
