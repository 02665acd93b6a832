package audio

import (
	"net/http"

	"github.com/charmbracelet/log"
)

// Options configures elements built by [New].
type Options struct {
	Client *http.Client
	Logger *log.Logger
	// Silent forces a [SilentElement] even when a speaker backend is available.
	Silent bool
}
