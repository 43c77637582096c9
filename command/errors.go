package command

import (
	"errors"

	"github.com/fhn666/wgpu/track"
)

// Errors returned by session operations.
var (
	// ErrInvalid is returned when an identity is unknown or stale. It
	// wraps hub.ErrInvalidID.
	ErrInvalid = errors.New("command: invalid identity")

	// ErrNotRecording is returned when the session is already finished.
	ErrNotRecording = errors.New("command: command buffer is not recording")

	// ErrAffinity is returned when the affinity token does not belong to
	// the session.
	ErrAffinity = errors.New("command: affinity token does not match command buffer")

	// ErrNotFinished is returned when submitting a session still recording.
	ErrNotFinished = errors.New("command: command buffer is still recording")

	// ErrAlreadySubmitted is returned when submitting a session twice.
	ErrAlreadySubmitted = errors.New("command: command buffer already submitted")

	// ErrNoAcquiredView is returned when a swap chain has no acquired view.
	ErrNoAcquiredView = errors.New("command: swap chain has no acquired view")

	// ErrViewAcquired is returned when acquiring a second view from a swap
	// chain before presenting the first.
	ErrViewAcquired = errors.New("command: swap chain view already acquired")

	// ErrNoRawBuffer is returned when a nil raw command buffer is given.
	ErrNoRawBuffer = errors.New("command: nil raw command buffer")

	// ErrSwapChainInUse is returned when a session already renders to a
	// different swap chain.
	ErrSwapChainInUse = errors.New("command: command buffer already uses another swap chain")

	// ErrPassInvalid is returned when a pass was recorded with invalid
	// arguments.
	ErrPassInvalid = errors.New("command: invalid pass")

	// ErrUsageConflict matches every track.UsageConflict.
	ErrUsageConflict = track.ErrUsageConflict
)
