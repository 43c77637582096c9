package command

import "github.com/gogpu/gputypes"

// GlobalOption configures a Global.
type GlobalOption func(*globalOptions)

type globalOptions struct {
	backend  gputypes.Backend
	observer Observer
}

func defaultGlobalOptions() globalOptions {
	return globalOptions{backend: gputypes.BackendVulkan}
}

// WithBackend sets the backend tag carried by every identity the Global
// issues. The default is gputypes.BackendVulkan.
func WithBackend(b gputypes.Backend) GlobalOption {
	return func(o *globalOptions) { o.backend = b }
}

// WithObserver attaches an observer to the Global. Sessions inherit it
// unless BeginEncoder is given WithEncoderObserver.
func WithObserver(obs Observer) GlobalOption {
	return func(o *globalOptions) { o.observer = obs }
}

// EncoderOption configures a session created by BeginEncoder.
type EncoderOption func(*encoderOptions)

type encoderOptions struct {
	label       string
	observer    Observer
	hasObserver bool
}

// WithLabel sets the debug label of the session.
func WithLabel(label string) EncoderOption {
	return func(o *encoderOptions) { o.label = label }
}

// WithEncoderObserver replaces the Global observer for one session. A nil
// observer disables observation for the session.
func WithEncoderObserver(obs Observer) EncoderOption {
	return func(o *encoderOptions) {
		o.observer = obs
		o.hasObserver = true
	}
}
