package metrics

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// StartServer serves /metrics, plus any extra routes, on a dedicated port
// in the background. Services without an API of their own, such as the
// indexer, expose their health probes here. The returned function shuts the
// server down.
func StartServer(port int, extra map[string]http.Handler) (shutdown func(context.Context) error) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler())
	routes := []string{"/metrics"}
	for pattern, h := range extra {
		mux.Handle(pattern, h)
		routes = append(routes, pattern)
	}
	sort.Strings(routes)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Question Bank</h1><ul>")
		for _, route := range routes {
			fmt.Fprintf(w, "<li>%s</li>", html.EscapeString(route))
		}
		fmt.Fprint(w, "</ul></body></html>")
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "routes", routes)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
