//go:build ignore

// probe-services.go sweeps PlantMesh installations and reports which service
// endpoints answer. A 401 counts as alive: it proves the service is there and
// enforcing auth, which is all an unauthenticated probe can establish.
//
// Run with: go run scripts/probe-services.go [base-url ...]
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Default sweep targets: the ports a development compose stack publishes the
// HTTP services on.
var defaultBases = []string{
	"http://localhost:8100", // directory
	"http://localhost:8101", // configstore
	"http://localhost:8102", // authentication
	"http://localhost:8103", // command escalation
}

// Paths every HTTP service on the mesh is expected to serve. The service
// UUID below is ConfigStore's, as registered in pkg/wellknown; asking the
// directory path on a non-directory service is a deliberate negative probe.
var probePaths = []string{
	"/ping",
	"/token",
	"/v1/service/af15f175-78a0-4e05-97c0-2a0bb82b9f3b",
}

type result struct {
	base    string
	path    string
	status  int
	err     string
	latency time.Duration
}

func (r result) alive() bool {
	return r.err == "" && (r.status < 500)
}

func (r result) class() string {
	switch {
	case r.err != "":
		return "unreachable"
	case r.status >= 200 && r.status < 300:
		return "open"
	case r.status == 401 || r.status == 403:
		return "auth"
	case r.status == 404 || r.status == 405:
		return "no-endpoint"
	default:
		return fmt.Sprintf("HTTP %d", r.status)
	}
}

func probe(base, path string, client *http.Client) result {
	url := strings.TrimRight(base, "/") + path
	start := time.Now()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return result{base: base, path: path, err: err.Error()}
	}
	req.Header.Set("User-Agent", "pmesh-probe/0.1")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		msg := err.Error()
		if len(msg) > 60 {
			msg = msg[:60] + "..."
		}
		return result{base: base, path: path, err: msg, latency: latency}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 512)) //nolint:errcheck

	return result{base: base, path: path, status: resp.StatusCode, latency: latency}
}

func main() {
	bases := os.Args[1:]
	if len(bases) == 0 {
		bases = defaultBases
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
		},
	}

	type job struct {
		base, path string
	}

	jobs := make(chan job, len(bases)*len(probePaths))
	results := make(chan result, len(bases)*len(probePaths))

	// Worker pool: 8 concurrent probes
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- probe(j.base, j.path, client)
			}
		}()
	}

	total := 0
	for _, b := range bases {
		for _, p := range probePaths {
			jobs <- job{b, p}
			total++
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	byBase := map[string][]result{}
	checked := 0
	for r := range results {
		checked++
		fmt.Printf("\r  probing... %d/%d", checked, total)
		byBase[r.base] = append(byBase[r.base], r)
	}
	fmt.Printf("\r  done — %d endpoints probed\n\n", total)

	ordered := make([]string, 0, len(byBase))
	for b := range byBase {
		ordered = append(ordered, b)
	}
	sort.Strings(ordered)

	// ── Report ────────────────────────────────────────────────────────────────
	fmt.Printf("══════════════════════════════════════════════════════\n")
	fmt.Printf("  PlantMesh Service Probe Results\n")
	fmt.Printf("  Bases checked: %d  |  Paths per base: %d\n", len(bases), len(probePaths))
	fmt.Printf("══════════════════════════════════════════════════════\n\n")

	deadBases := 0
	for _, base := range ordered {
		rs := byBase[base]
		sort.Slice(rs, func(i, j int) bool { return rs[i].path < rs[j].path })

		anyAlive := false
		for _, r := range rs {
			if r.alive() {
				anyAlive = true
				break
			}
		}
		marker := "✦"
		if !anyAlive {
			marker = "✗"
			deadBases++
		}

		fmt.Printf("%s %s\n", marker, base)
		for _, r := range rs {
			if r.err != "" {
				fmt.Printf("    %-50s %s (%s)\n", r.path, r.class(), r.err)
				continue
			}
			fmt.Printf("    %-50s %s (%dms)\n", r.path, r.class(), r.latency.Milliseconds())
		}
		fmt.Println()
	}

	if deadBases == len(ordered) {
		fmt.Println("  Nothing answered. Check the base URLs and that the stack is up.")
	}
	fmt.Println("══════════════════════════════════════════════════════")
}
