package trace

import (
	"fmt"
	"io"

	"github.com/gogpu/gputypes"
	"github.com/google/uuid"

	"github.com/fhn666/wgpu/command"
)

// Summary counts what a trace contains.
type Summary struct {
	ID       uuid.UUID        `json:"id"`
	Backend  string           `json:"backend"`
	Actions  int              `json:"actions"`
	Devices  int              `json:"devices"`
	Buffers  int              `json:"buffers"`
	Textures int              `json:"textures"`
	Views    int              `json:"views"`
	Objects  int              `json:"objects"`
	Sessions []SessionSummary `json:"sessions"`

	SwapChains  int `json:"swap_chains,omitempty"`
	Destroyed   int `json:"destroyed,omitempty"`
	Submissions int `json:"submissions,omitempty"`
}

// SessionSummary counts the work recorded on one session.
type SessionSummary struct {
	ID            Ref    `json:"id"`
	Label         string `json:"label,omitempty"`
	ComputePasses int    `json:"compute_passes"`
	RenderPasses  int    `json:"render_passes"`
	Commands      int    `json:"commands"`
	DebugGroups   int    `json:"debug_groups"`
	Markers       int    `json:"markers"`
	Finished      bool   `json:"finished"`
	Continued     int    `json:"continued,omitempty"`
	Submitted     bool   `json:"submitted,omitempty"`
}

// BackendName returns a display name for a traced backend.
func BackendName(b uint32) string {
	if gputypes.Backend(b) == gputypes.BackendVulkan {
		return "vulkan"
	}
	return fmt.Sprintf("backend(%d)", b)
}

// Summarize counts the actions of t. Sessions are listed in the order they
// were begun.
func Summarize(t *Trace) Summary {
	s := Summary{ID: t.ID, Backend: BackendName(t.Backend), Actions: len(t.Actions)}
	index := make(map[Ref]int)
	session := func(r Ref) *SessionSummary {
		i, ok := index[r]
		if !ok {
			i = len(s.Sessions)
			index[r] = i
			s.Sessions = append(s.Sessions, SessionSummary{ID: r})
		}
		return &s.Sessions[i]
	}

	for i := range t.Actions {
		a := &t.Actions[i]
		switch a.Kind() {
		case KindCreateDevice:
			s.Devices++
		case KindCreateBuffer:
			s.Buffers++
		case KindCreateTexture:
			s.Textures++
		case KindCreateTextureView:
			s.Views++
		case KindCreateObject:
			s.Objects++
		case KindBeginEncoder:
			session(a.BeginEncoder.ID).Label = a.BeginEncoder.Label
		case KindPushDebugGroup:
			session(a.PushDebugGroup.Encoder).DebugGroups++
		case KindInsertDebugMarker:
			session(a.InsertDebugMarker.Encoder).Markers++
		case KindRunComputePass:
			ss := session(a.RunComputePass.Encoder)
			ss.ComputePasses++
			for _, c := range a.RunComputePass.Commands {
				ss.Commands++
				switch c.Op {
				case command.ComputePushDebugGroup:
					ss.DebugGroups++
				case command.ComputeInsertDebugMarker:
					ss.Markers++
				}
			}
		case KindRunRenderPass:
			ss := session(a.RunRenderPass.Encoder)
			ss.RenderPasses++
			for _, c := range a.RunRenderPass.Commands {
				ss.Commands++
				switch c.Op {
				case command.RenderPushDebugGroup:
					ss.DebugGroups++
				case command.RenderInsertDebugMarker:
					ss.Markers++
				}
			}
		case KindFinish:
			session(a.Finish.Encoder).Finished = true
		case KindContinueEncoder:
			session(a.ContinueEncoder.Encoder).Continued++
		case KindCreateSwapChain:
			s.SwapChains++
		case KindDestroyBuffer, KindDestroyTexture, KindDestroyTextureView:
			s.Destroyed++
		case KindSubmit:
			s.Submissions++
			for _, r := range a.Submit.CommandBuffers {
				session(r).Submitted = true
			}
		}
	}
	return s
}

// WriteText writes s in the line-oriented form printed by wgtrace inspect.
func (s Summary) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "trace %s (%s, %d actions)\n", s.ID, s.Backend, s.Actions); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "resources: devices=%d buffers=%d textures=%d views=%d objects=%d\n",
		s.Devices, s.Buffers, s.Textures, s.Views, s.Objects); err != nil {
		return err
	}
	if s.SwapChains+s.Destroyed+s.Submissions > 0 {
		if _, err := fmt.Fprintf(w, "lifecycle: swap_chains=%d destroyed=%d submissions=%d\n",
			s.SwapChains, s.Destroyed, s.Submissions); err != nil {
			return err
		}
	}
	for _, ss := range s.Sessions {
		if _, err := fmt.Fprintf(w, "session %v %q: compute_passes=%d render_passes=%d commands=%d debug_groups=%d markers=%d finished=%t\n",
			ss.ID, ss.Label, ss.ComputePasses, ss.RenderPasses, ss.Commands, ss.DebugGroups, ss.Markers, ss.Finished); err != nil {
			return err
		}
	}
	return nil
}
