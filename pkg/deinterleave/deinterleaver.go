// Package deinterleave splits a time-major interleaved stack into
// channel-major stacks.
//
// An acquisition that cycles through N channels produces frames in the order
// t0c0, t0c1, ..., t0cN-1, t1c0, ... . Shuffle regroups those frames so that
// every channel is contiguous, and Split cuts the regrouped stack into one
// stack per channel. When the frame count is not a multiple of N the
// leftover frames are emitted as an extra, (N+1)-th remainder channel rather
// than being dropped or redistributed.
package deinterleave

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"

	"deinterleave/internal/models"
)

// Coord is the position of an interleaved frame in (channel, time) space
type Coord struct {
	Channel int
	Time    int
}

// Range is a half-open frame range [Begin, End) of a shuffled stack
type Range struct {
	Begin, End int

	// Ordinal is the 1-based channel number the range is emitted as
	Ordinal int
}

// Len returns the number of frames in the range.
func (r Range) Len() int { return r.End - r.Begin }

func checkChannels(channels int) {
	if channels < 1 {
		panic(fmt.Sprintf("deinterleave: channel count must be at least 1, got %d", channels))
	}
}

// Locate maps the flat index of a frame in an interleaved stack of the given
// size to its channel and timepoint.
//
// The stack is viewed as a row-major [timepoints][channels] array, so the
// channel is index mod channels and the timepoint is index div channels.
func Locate(index, channels, size int) Coord {
	checkChannels(channels)
	if index < 0 || index >= size {
		panic(fmt.Sprintf("deinterleave: index %d out of range [0, %d)", index, size))
	}

	timepoints := (size + channels - 1) / channels
	sub := combin.SubFor(nil, index, []int{timepoints, channels})
	return Coord{Channel: sub[1], Time: sub[0]}
}

// Shuffle returns a stack holding the frames of stack reordered from
// time-major to channel-major order.
//
// For each channel c in [0, channels), every frame whose index i satisfies
// i mod channels == c is appended in increasing i. The result is a stable
// permutation of the input with the same length. The input is not modified.
func Shuffle(stack models.Stack, channels int) models.Stack {
	checkChannels(channels)

	size := stack.Size()
	shuffled := models.Stack{
		Name:        stack.Name,
		Frames:      make([]models.Frame, 0, size),
		Calibration: stack.Calibration,
	}
	for channel := 0; channel < channels; channel++ {
		for i := channel; i < size; i += channels {
			shuffled.Frames = append(shuffled.Frames, stack.Frames[i])
		}
	}
	return shuffled
}

// Plan returns the ranges Split emits for a shuffled stack of the given size.
//
// framesPerChannel is size / channels. The loop runs for channel = 0 up to and
// including channels, one past the nominal count: that last iteration is what
// turns leftover frames into a remainder channel. Each range is
// [channel*framesPerChannel, min(begin+framesPerChannel, size)) and the first
// empty range ends the plan.
//
// Ranges never exceed framesPerChannel frames, so when size mod channels is
// larger than framesPerChannel the frames past the remainder range are not
// covered. When channels > size, framesPerChannel is 0 and the plan is empty.
func Plan(size, channels int) []Range {
	checkChannels(channels)

	framesPerChannel := size / channels
	var ranges []Range
	for channel := 0; channel <= channels; channel++ {
		begin := channel * framesPerChannel
		end := min(begin+framesPerChannel, size)
		if begin == end {
			break
		}
		ranges = append(ranges, Range{Begin: begin, End: end, Ordinal: channel + 1})
	}
	return ranges
}

// Uncovered returns how many trailing frames of a shuffled stack of the given
// size fall outside every range of Plan(size, channels).
func Uncovered(size, channels int) int {
	ranges := Plan(size, channels)
	if len(ranges) == 0 {
		return size
	}
	return size - ranges[len(ranges)-1].End
}

// Split cuts a stack produced by Shuffle into per-channel stacks, using the
// same channel count that produced it. See Plan for the range rule.
//
// Each output is named "<name> #<ordinal>" and carries a copy of the input
// calibration. An output emitted by the extra iteration past the nominal
// channel count is flagged as the remainder channel.
func Split(shuffled models.Stack, channels int) []models.ChannelStack {
	ranges := Plan(shuffled.Size(), channels)

	out := make([]models.ChannelStack, 0, len(ranges))
	for _, r := range ranges {
		sub := MakeSubStack(shuffled, r.Begin, r.End)
		sub.Name = ChannelName(shuffled.Name, r.Ordinal)
		sub.Calibration = shuffled.Calibration.Copy()
		out = append(out, models.ChannelStack{
			Stack:     sub,
			Ordinal:   r.Ordinal,
			Remainder: r.Ordinal > channels,
		})
	}
	return out
}

// MakeSubStack returns a new stack referencing frames [begin, end) of stack,
// indexed from zero. Frames are copied by reference; the backing array is not
// shared with the input. It panics unless 0 <= begin <= end <= stack.Size().
func MakeSubStack(stack models.Stack, begin, end int) models.Stack {
	if begin < 0 || begin > end || end > stack.Size() {
		panic(fmt.Sprintf("deinterleave: invalid frame range [%d, %d) for stack of %d", begin, end, stack.Size()))
	}

	frames := make([]models.Frame, end-begin)
	copy(frames, stack.Frames[begin:end])
	return models.Stack{
		Name:        stack.Name,
		Frames:      frames,
		Calibration: stack.Calibration,
	}
}

// Deinterleave shuffles stack and splits it into channel stacks.
func Deinterleave(stack models.Stack, channels int) []models.ChannelStack {
	return Split(Shuffle(stack, channels), channels)
}

// ChannelName builds the display name of a channel stack.
func ChannelName(name string, ordinal int) string {
	return fmt.Sprintf("%s #%d", name, ordinal)
}
