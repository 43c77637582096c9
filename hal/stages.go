package hal

import "strings"

// StageFlags selects pipeline stages on either side of a barrier.
type StageFlags uint32

// Pipeline stages.
const (
	StageTopOfPipe StageFlags = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottomOfPipe
	StageHost
)

// AllBufferStages holds every stage that can access a buffer.
const AllBufferStages = StageDrawIndirect | StageVertexInput | StageVertexShader |
	StageFragmentShader | StageComputeShader | StageTransfer | StageHost

// AllImageStages holds every stage that can access a texture.
const AllImageStages = StageVertexShader | StageFragmentShader | StageEarlyFragmentTests |
	StageLateFragmentTests | StageColorAttachmentOutput | StageComputeShader | StageTransfer

var stageNames = [...]string{
	"TOP_OF_PIPE", "DRAW_INDIRECT", "VERTEX_INPUT", "VERTEX_SHADER",
	"FRAGMENT_SHADER", "EARLY_FRAGMENT_TESTS", "LATE_FRAGMENT_TESTS",
	"COLOR_ATTACHMENT_OUTPUT", "COMPUTE_SHADER", "TRANSFER",
	"BOTTOM_OF_PIPE", "HOST",
}

// String returns the stage names joined by '|'.
func (s StageFlags) String() string {
	if s == 0 {
		return "NONE"
	}
	var parts []string
	for i, name := range stageNames {
		if s&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
