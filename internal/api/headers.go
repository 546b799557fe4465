package api

import "net/http"

const userAgent = "notewhisper/1.0"

// Common request headers.
var baseHeaders = map[string]string{
	"accept":     "application/json",
	"user-agent": userAgent,
	// Note: Do NOT set Accept-Encoding manually. Go's http.Transport handles
	// gzip automatically, but only when the caller leaves it unset.
}

// setHeaders applies the base headers and the API key under keyHeader.
func setHeaders(req *http.Request, keyHeader, apiKey string) {
	for k, v := range baseHeaders {
		req.Header.Set(k, v)
	}
	req.Header.Set(keyHeader, apiKey)
}
