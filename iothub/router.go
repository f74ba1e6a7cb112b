package iothub

import "strings"

// ConfigHandler receives configuration pushes
type ConfigHandler func(payload []byte)

// CommandHandler receives command pushes; subfolder is empty when the
// command was addressed to the device root
type CommandHandler func(payload []byte, subfolder string)

// Router dispatches inbound messages to the fixed channel set. A nil
// handler means the channel was never subscribed and is never invoked.
type Router struct {
	Config  ConfigHandler
	Command CommandHandler
}

// Route matches topic against the device namespace and invokes the
// handler for its channel. The transport may deliver topics outside the
// set this layer subscribed to; anything that does not match is dropped
// without error.
func (r *Router) Route(topic string, payload []byte) {
	segs := strings.Split(topic, "/")
	if len(segs) < 4 || segs[0] != "" || segs[1] != "devices" {
		return
	}
	switch segs[3] {
	case "config":
		if len(segs) == 4 && r.Config != nil {
			r.Config(payload)
		}
	case "commands":
		if r.Command != nil {
			// the commands subscription is a multi-level wildcard, so
			// the subfolder may itself contain slashes
			r.Command(payload, strings.Join(segs[4:], "/"))
		}
	}
}
