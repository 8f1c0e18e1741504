package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const DefaultEndpoint = "wss://api.deepgram.com/v1/listen"

// ListenOptions become query parameters on the streaming endpoint.
type ListenOptions struct {
	Model          string
	Language       string
	Encoding       string
	SampleRate     int
	Channels       int
	InterimResults bool
	SmartFormat    bool
	Punctuate      bool
	Keywords       []string
}

// BuildURL appends the listen options to the endpoint.
func BuildURL(endpoint string, opts ListenOptions) (string, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("endpoint scheme must be ws or wss, got %q", u.Scheme)
	}

	q := u.Query()
	if opts.Model != "" {
		q.Set("model", opts.Model)
	}
	if opts.Encoding != "" {
		q.Set("encoding", opts.Encoding)
	}
	if opts.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(opts.SampleRate))
	}
	if opts.Channels > 0 {
		q.Set("channels", strconv.Itoa(opts.Channels))
	}
	if opts.InterimResults {
		q.Set("interim_results", "true")
	}
	if opts.SmartFormat {
		q.Set("smart_format", "true")
	}
	if opts.Punctuate {
		q.Set("punctuate", "true")
	}
	if lang := normalizeLanguage(opts.Language); lang != "" {
		q.Set("language", lang)
	}
	if len(opts.Keywords) > 0 {
		q.Set("keywords", strings.Join(opts.Keywords, ","))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// normalizeLanguage expands bare "en" to the regional code the service expects.
func normalizeLanguage(lang string) string {
	if lang == "en" {
		return "en-US"
	}
	return lang
}

// EncodingFor maps a PipeWire sample format onto the service's encoding name.
func EncodingFor(format string) string {
	switch format {
	case "s16", "s16le":
		return "linear16"
	case "f32", "f32le":
		return "linear32"
	case "alaw":
		return "alaw"
	case "ulaw", "mulaw":
		return "mulaw"
	default:
		return ""
	}
}
