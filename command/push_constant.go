package command

import "iter"

// PushConstantClearWords is the largest number of zero words written by a
// single push-constant update when clearing.
const PushConstantClearWords = 64

// pushConstantZeros is the zero source shared by every clear.
var pushConstantZeros [PushConstantClearWords]uint32

// PushConstantClearChunks returns the writes that zero sizeBytes of push
// constant memory starting at byte offset. Each write covers at most
// PushConstantClearWords words, writes are contiguous and in increasing
// offset order, and their number is ceil(sizeBytes / (4*PushConstantClearWords)).
// sizeBytes must be a multiple of 4.
//
// The yielded slices alias a shared zero array and must not be modified.
func PushConstantClearChunks(offset, sizeBytes uint32) iter.Seq2[uint32, []uint32] {
	return func(yield func(uint32, []uint32) bool) {
		sizeWords := sizeBytes / 4
		for done := uint32(0); done < sizeWords; {
			n := min(sizeWords-done, PushConstantClearWords)
			if !yield(offset+done*4, pushConstantZeros[:n]) {
				return
			}
			done += n
		}
	}
}

// PushConstantClear zeroes sizeBytes of push constant memory starting at
// byte offset by calling sink once per chunk. See PushConstantClearChunks.
func PushConstantClear(offset, sizeBytes uint32, sink func(offset uint32, data []uint32)) {
	for off, data := range PushConstantClearChunks(offset, sizeBytes) {
		sink(off, data)
	}
}
