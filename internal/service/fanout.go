package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/videogen/api/internal/apperr"
	"github.com/videogen/api/internal/client"
)

// Result is the outcome of one image generation call.
type Result struct {
	Prompt string
	URL    string
	Err    error
}

// generateAll issues one call per prompt with at most limit in flight. Calls
// never cancel each other; every outcome lands in the slot of its prompt.
func generateAll(ctx context.Context, images client.ImageGenerator, prompts []string, limit int, timeout time.Duration) []Result {
	results := make([]Result, len(prompts))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			callCtx, cancel := withCallTimeout(ctx, timeout)
			defer cancel()

			url, err := images.GenerateImage(callCtx, prompt)
			results[i] = Result{Prompt: prompt, URL: url, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// CollectURLs applies the partial-success rule: any success yields the
// successful URLs and the failure count; zero successes is an error.
func CollectURLs(results []Result) ([]string, int, error) {
	urls := make([]string, 0, len(results))
	var lastErr error
	failed := 0
	for _, r := range results {
		if r.Err == nil && r.URL != "" {
			urls = append(urls, r.URL)
			continue
		}
		failed++
		if r.Err != nil {
			lastErr = r.Err
		}
	}
	if len(urls) == 0 {
		return nil, failed, apperr.AllGenerationsFailed(len(results), lastErr)
	}
	return urls, failed, nil
}
