package audio

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// Format is a decodable container.
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatFLAC Format = "flac"
)

// DetectFormat guesses the format from the source path, then from a content type.
func DetectFormat(src, contentType string) (Format, bool) {
	p := src
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".mp3":
		return FormatMP3, true
	case ".wav", ".wave":
		return FormatWAV, true
	case ".flac":
		return FormatFLAC, true
	}

	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "audio/mpeg", "audio/mp3":
		return FormatMP3, true
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV, true
	case "audio/flac", "audio/x-flac":
		return FormatFLAC, true
	}
	return "", false
}

// Fetch reads src fully into memory. src is an http(s) URL, a file:// URL or a local path.
// Failures are returned as [*MediaError].
func Fetch(ctx context.Context, client *http.Client, src string) ([]byte, Format, error) {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(src)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetchHTTP(ctx, client, src)
	}

	p := src
	if err == nil && u.Scheme == "file" {
		p = u.Path
	}

	format, ok := DetectFormat(p, "")
	if !ok {
		return nil, "", &MediaError{Code: CodeUnsupported, Err: fmt.Errorf("unrecognised format: %s", src)}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", &MediaError{Code: CodeNetwork, Err: err}
	}
	return data, format, nil
}

func fetchHTTP(ctx context.Context, client *http.Client, src string) ([]byte, Format, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", &MediaError{Code: CodeNetwork, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", &MediaError{Code: CodeAborted, Err: err}
		}
		return nil, "", &MediaError{Code: CodeNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &MediaError{Code: CodeNetwork, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	format, ok := DetectFormat(src, resp.Header.Get("Content-Type"))
	if !ok {
		return nil, "", &MediaError{Code: CodeUnsupported, Err: fmt.Errorf("unrecognised format: %s", src)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", &MediaError{Code: CodeAborted, Err: err}
		}
		return nil, "", &MediaError{Code: CodeNetwork, Err: err}
	}
	return data, format, nil
}
