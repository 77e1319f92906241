package models

import "maps"

// Frame is one image plane of a stack. The deinterleaver never looks inside
// a frame; it only moves references around.
type Frame struct {
	// Index is the position of this frame in the source stack
	Index int

	// Filename is the original filename of the frame
	Filename string

	// Path is where the frame's bytes live on disk
	Path string
}

// Calibration is the spatial/temporal calibration of a stack. It is opaque to
// this module and copied onto every derived stack unchanged.
type Calibration map[string]any

// Copy returns a shallow copy so derived stacks don't share the map.
func (c Calibration) Copy() Calibration {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// Stack is an ordered sequence of frames. Frame order encodes the
// time/channel position and is significant.
type Stack struct {
	// Name is the display title of the stack
	Name string

	// Frames holds the planes in stack order
	Frames []Frame

	// Calibration travels with the stack
	Calibration Calibration
}

// Size returns the number of frames in the stack.
func (s Stack) Size() int {
	return len(s.Frames)
}

// ChannelStack is one output of the deinterleaver
type ChannelStack struct {
	Stack

	// Ordinal is the 1-based channel number used for naming
	Ordinal int

	// Remainder is set on the extra channel built from leftover frames
	// when the stack size is not a multiple of the channel count.
	Remainder bool
}
