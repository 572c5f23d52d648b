package main

import (
	"io"
	"net/http"
	"net/url"
	"strings"

	"embed-server/internal/util"
)

// proxyAllowedHosts are the upstreams the media proxy will front. These are
// exactly the hosts whose video playback breaks cross-context, so the card
// renderer rewrites their sources through /media/proxy.
var proxyAllowedHosts = []string{
	"video.twimg.com",
	"v.redd.it",
}

const proxyMaxBytes = 64 * 1024 * 1024 // video segments, not pages

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// mediaProxyHandler streams an allow-listed upstream video through the local
// origin. Anything off the allow-list, non-https, or resolving to a private
// address is refused.
func mediaProxyHandler(deps *serverDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			util.RespondMethodNotAllowed(w, "GET or HEAD only")
			return
		}
		src := r.URL.Query().Get("src")
		if src == "" {
			util.RespondBadRequest(w, "missing src")
			return
		}
		u, err := url.Parse(src)
		if err != nil || u.Scheme != "https" {
			util.RespondBadRequest(w, "invalid src")
			return
		}
		host := strings.ToLower(u.Hostname())
		if util.IsPrivateHost(host) || !proxyHostAllowed(host) {
			util.RespondForbidden(w, "host not allowed")
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), r.Method, u.String(), nil)
		if err != nil {
			util.RespondBadRequest(w, "invalid src")
			return
		}
		req.Header.Set("User-Agent", deps.cfg.UserAgent)
		if rng := r.Header.Get("Range"); rng != "" {
			req.Header.Set("Range", rng)
		}

		resp, err := deps.proxyClient.Do(req)
		if err != nil {
			util.RespondBadGateway(w, "upstream fetch failed")
			return
		}
		defer resp.Body.Close()

		for _, h := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
			if v := resp.Header.Get(h); v != "" {
				w.Header().Set(h, v)
			}
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, io.LimitReader(resp.Body, proxyMaxBytes))
	}
}

func proxyHostAllowed(host string) bool {
	for _, h := range proxyAllowedHosts {
		if util.HostMatches(host, h) {
			return true
		}
	}
	return false
}
