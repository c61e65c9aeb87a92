// Command healthcheck queries the local HTTP server for container health checks.
// It exits non-zero unless the requested endpoint answers 200.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"time"
)

func main() {
	path := flag.String("path", "/healthz", "endpoint to check (/healthz or /readyz)")
	flag.Parse()

	client := &http.Client{Timeout: 3 * time.Second}
	ctx := context.Background()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL(os.Getenv("HTTP_ADDR"), *path), nil)
	if err != nil {
		os.Exit(1)
	}
	resp, err := client.Do(req)
	if err != nil {
		os.Exit(1)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode != 200 {
		os.Exit(1)
	}
}

// checkURL turns a listen address like ":8080" or "0.0.0.0:9000" into a
// loopback URL.
func checkURL(addr, path string) string {
	if addr == "" {
		addr = ":8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = "", addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + path
}
