// Package wgpu is the command-recording core of a WebGPU implementation.
//
// # Overview
//
// The core sits between a command-encoding API and a native driver
// backend. It tracks, per GPU resource, the usage implied by recorded
// commands, emits the pipeline barriers needed between usages, enforces the
// lifecycle of recording sessions and keeps a backend-agnostic copy of the
// recorded passes for deferred replay.
//
// # Architecture
//
// The module is organized into:
//   - id: generation-stamped resource identities
//   - hub: concurrent identity tables and the lock hierarchy
//   - resource: resource objects and usage flags
//   - track: usage trackers and barrier derivation
//   - hal: the raw command-buffer primitive and its backends
//     (hal/recorder, hal/vulkan, hal/wgpuhal)
//   - command: recording sessions, barrier insertion, pass streams
//   - trace: capture and replay of recorded sessions
//
// The wgtrace command (cmd/wgtrace) summarizes, replays and watches traces.
//
// # Logging
//
// Nothing is logged by default. Install a logger with [SetLogger]:
//
//	wgpu.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
package wgpu

// Version information
const (
	// Version is the current version of the module
	Version = "0.6.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 6

	// VersionPatch is the patch version
	VersionPatch = 0
)
