// Command vtkload drives POST /api/v1/validate of a running vtkapi service
// with a rotating set of code samples and reports throughput, latency
// percentiles, cache hit rate and status codes.
//
// Usage:
//
//	vtkload -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// samples mix valid pipelines with each error family so the service exercises
// every validator.
var samples = []string{
	"from vtkmodules.vtkIOGeometry import vtkSTLReader\nreader = vtkSTLReader()\nreader.SetFileName('part.stl')\nreader.Update()\n",
	"from vtkmodules.vtkRenderingCore import vtkActor, vtkPolyDataMapper\nmapper = vtkPolyDataMapper()\nactor = vtkActor()\nactor.SetMapper(mapper)\n",
	"from vtkmodules.vtkCommonCore import vtkPolyDataMapper\nmapper = vtkPolyDataMapper()\n",
	"from vtkmodules.vtkIOGeometry import vtkSTLReaderz\nreader = vtkSTLReaderz()\n",
	"from vtkmodules.vtkRenderingCore import vtkActor\nactor = vtkActor()\nactor.SetMaper(None)\n",
	"import vtk\nsource = vtk.vtkSphereSource()\nsource.SetRadius(2.0)\n",
	"from vtkmodules import vtkFiltersSources as fs\ncone = fs.vtkConeSource()\n",
}

type loadConfig struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the vtkapi service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	cfg := loadConfig{BaseURL: *baseURL, Concurrency: *concurrency, Duration: *duration}

	fmt.Println("=== vtkapi Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Samples:     %d unique\n", len(samples))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()
	stats := run(ctx, cfg, newClient(cfg.Concurrency))

	summary := stats.Summarize(cfg.Duration)
	summary.Print(os.Stdout)
	if summary.Total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func newClient(concurrency int) *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// run keeps cfg.Concurrency workers posting samples until ctx is done.
func run(ctx context.Context, cfg loadConfig, client *http.Client) *Stats {
	stats := NewStats()
	endpoint := cfg.BaseURL + "/api/v1/validate"

	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				body, _ := json.Marshal(map[string]string{"code": samples[i%len(samples)]})
				start := time.Now()
				res, status, err := post(ctx, client, endpoint, body)
				if ctx.Err() != nil {
					return nil
				}
				stats.RecordRequest(time.Since(start), status, res, err)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

type validateResponse struct {
	IsValid  bool `json:"is_valid"`
	CacheHit bool `json:"cache_hit"`
}

func post(ctx context.Context, client *http.Client, endpoint string, body []byte) (*validateResponse, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return &out, resp.StatusCode, nil
}
