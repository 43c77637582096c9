// Package command implements command buffer recording: the lifecycle of a
// recording session, barrier insertion between passes and the generic
// command stream passes are recorded into.
//
// A session is created by [Global.BeginEncoder], which returns its identity
// together with an [Affinity] token. Every session-scoped operation takes
// both; the token proves the caller is the session's single writer.
//
//	enc, aff, err := g.BeginEncoder(device, raw)
//	if err != nil { ... }
//	pass := command.NewComputePass(g.Backend())
//	pass.SetPipeline(pipeline)
//	pass.Dispatch(64, 1, 1)
//	if err := g.RunComputePass(enc, aff, pass, nil); err != nil { ... }
//	cmdBuf, err := g.Finish(enc, aff)
//
// Operations return [ErrInvalid] for unknown or stale identities and
// [ErrNotRecording] for finished sessions, and never modify a session on
// an error path. Tables are locked in the order documented by package hub.
//
// Internal bookkeeping failures are not returned as errors: they panic
// with a track.InvariantViolation after marking the session as no longer
// recording.
package command
