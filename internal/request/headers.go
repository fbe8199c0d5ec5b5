package request

import (
	"math/rand/v2"
	"net/http"
)

// userAgents is the rotation pool for outgoing requests. The upstream API
// expects a browser-shaped header set and may reject clients without one.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/105.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Firefox/102.0",
}

const (
	appOrigin  = "https://app.psdn.ai"
	appReferer = "https://app.psdn.ai/"
)

// BrowserHeaders builds the header set every API request carries: a rotating
// user agent plus the fixed origin/referer and client-hint fields the web app
// sends. Authorization is added only when token is non-empty.
func BrowserHeaders(token string) http.Header {
	h := http.Header{}
	h.Set("accept", "application/json, text/plain, */*")
	h.Set("accept-language", "en-US,en;q=0.9,id;q=0.8")
	h.Set("origin", appOrigin)
	h.Set("priority", "u=1, i")
	h.Set("referer", appReferer)
	h.Set("sec-ch-ua", `"Chromium";v="134", "Not:A-Brand";v="24", "Google Chrome";v="134"`)
	h.Set("sec-ch-ua-mobile", "?0")
	h.Set("sec-ch-ua-platform", `"Windows"`)
	h.Set("sec-fetch-dest", "empty")
	h.Set("sec-fetch-mode", "cors")
	h.Set("sec-fetch-site", "cross-site")
	h.Set("user-agent", userAgents[rand.IntN(len(userAgents))])
	if token != "" {
		h.Set("authorization", "Bearer "+token)
	}
	return h
}
