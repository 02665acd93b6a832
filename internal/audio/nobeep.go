//go:build !((linux && cgo) || windows || darwin)

package audio

// Available indicates whether real audio output is supported in this build.
// Audio on linux requires cgo for the ALSA backend.
const Available = false

// New returns a [SilentElement]; this build has no speaker backend.
func New(Options) Element {
	return NewSilentElement()
}
