// Command healthcheck probes the formsync health endpoint and exits 0 on a
// 200 response. It exists for container HEALTHCHECK directives, which cannot
// rely on curl being present in a minimal image.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"
)

const probeTimeout = 2 * time.Second

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := probe(ctx, loopbackAddr(os.Getenv("FORMSYNC_LISTEN_ADDR"))); err != nil {
		os.Exit(1)
	}
}

func probe(ctx context.Context, addr string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/api/v1/health", addr), nil)
	if err != nil {
		return err
	}

	resp, err := (&http.Client{Timeout: probeTimeout}).Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

// loopbackAddr rewrites a bind-all listen address to loopback. The server
// binds 0.0.0.0 in a container, but this probe runs inside the same
// container and must dial 127.0.0.1.
func loopbackAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return "127.0.0.1:8080"
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
