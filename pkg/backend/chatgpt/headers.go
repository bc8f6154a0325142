package chatgpt

import (
	"net/http"
	"net/url"
)

// DefaultUserAgent is the browser the header set impersonates.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Header names the backend inspects.
const (
	headerDeviceID          = "oai-device-id"
	headerRequirementsToken = "openai-sentinel-chat-requirements-token"
	headerProofToken        = "openai-sentinel-proof-token"
)

// browserHeaders returns the header set a Chrome 123 tab on Windows sends to
// the backend. Origin and referer follow base.
func browserHeaders(base *url.URL, userAgent string) http.Header {
	origin := base.Scheme + "://" + base.Host

	h := http.Header{}
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en")
	h.Set("Cache-Control", "no-cache")
	h.Set("Content-Type", "application/json")
	h.Set("Oai-Language", "en-US")
	h.Set("Origin", origin)
	h.Set("Pragma", "no-cache")
	h.Set("Priority", "u=1, i")
	h.Set("Referer", origin+"/")
	h.Set("Sec-Ch-Ua", `"Google Chrome";v="123", "Not:A-Brand";v="8", "Chromium";v="123"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", userAgent)
	return h
}
