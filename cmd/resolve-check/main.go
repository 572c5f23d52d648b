// resolve-check classifies a URL and runs it through the resolver chain,
// printing what the embed pipeline would produce. Handy for checking a
// provider change against a live URL without standing up the server.
//
// Usage:
//
//	go run ./cmd/resolve-check <url> [container-text]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"embed-server/internal/config"
	"embed-server/internal/intent"
	"embed-server/internal/resolve"
	"embed-server/internal/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: resolve-check <url> [container-text]")
		os.Exit(2)
	}
	rawURL := os.Args[1]
	containerText := ""
	if len(os.Args) > 2 {
		containerText = os.Args[2]
	}

	cfg := config.Load()
	fetcher := resolve.NewHTTPFetcher(resolve.HTTPFetcherConfig{
		Timeout:      cfg.FetchTimeout,
		RateInterval: cfg.FetchRate,
		Burst:        cfg.FetchBurst,
		UserAgent:    cfg.UserAgent,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	chain := resolve.NewChain(fetcher, resolve.ChainConfig{RefreshDefault: cfg.RefreshDefault})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mi := intent.Classify(intent.Input{
		URL:           rawURL,
		ContainerText: containerText,
		Settings:      types.DefaultSettings(),
	})
	fmt.Printf("kind: %s\n", mi.Kind)
	if mi.SourceID != "" {
		fmt.Printf("source id: %s\n", mi.SourceID)
	}
	if mi.Sensitivity != types.SensitivityNone {
		fmt.Printf("sensitivity: %s\n", mi.Sensitivity)
	}

	if mi.Kind == types.KindPicShortlink {
		dest, err := chain.ExpandShortlink(ctx, rawURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "expand: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("expands to: %s\n", dest)
		mi = intent.Classify(intent.Input{URL: dest, Settings: types.DefaultSettings()})
		fmt.Printf("destination kind: %s\n", mi.Kind)
	}
	if !mi.Supported() {
		fmt.Println("nothing to embed")
		return
	}

	rm, err := chain.Resolve(ctx, mi)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve: %v\n", err)
		os.Exit(1)
	}
	if rm == nil {
		fmt.Println("resolved to nothing (no card)")
		return
	}
	out, _ := json.MarshalIndent(rm, "", "  ")
	fmt.Println(string(out))
}
