// Package trace captures the operations performed on a command.Global and
// replays them.
//
// A [Recorder] is a command.Observer that turns every event into an
// [Action]. The resulting [Trace] is written and read through a [Codec];
// [YAMLCodec] is the default. [Play] replays a trace into a fresh Global,
// re-inserting barriers from the usage each pass was recorded with.
//
//	rec := trace.NewRecorder(gputypes.BackendVulkan)
//	g := command.NewGlobal(command.WithObserver(rec))
//	// ... record ...
//	err := trace.WriteFile("frame.yaml", rec.Trace(), trace.YAMLCodec{})
//
// Identities in a trace are the ones the recording Global issued. Play maps
// them onto the identities of the replay Global, so a trace stays valid
// when the recording process destroyed and reused table slots.
package trace
