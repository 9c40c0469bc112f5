// reqlifed - demo server showing the request metrics middleware end to end.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reqlife/reqlife/pkg/config"
	"github.com/reqlife/reqlife/pkg/httpmetrics"
	"github.com/reqlife/reqlife/pkg/logging"
)

var (
	flagAddr     string
	flagConfig   string
	flagPrefix   string
	flagLogLevel string
	flagLogJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "reqlifed",
	Short: "Demo HTTP server instrumented with reqlife request metrics",
	Example: `  # Serve the demo routes on :3000 and scrape http://localhost:3000/metrics
  reqlifed

  # Rename the metric families and log as JSON
  reqlifed --prefix myapp --log-json

  # Load ignore/group patterns from a YAML file
  reqlifed --config reqlife.yaml`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", ":3000", "listen address")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "instrumentation config file (YAML)")
	rootCmd.Flags().StringVar(&flagPrefix, "prefix", "", "metric family prefix (overrides config)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&flagLogJSON, "log-json", false, "log as JSON")
}

func run(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(flagLogLevel)
	if err != nil {
		return err
	}
	format := logging.FormatText
	if flagLogJSON {
		format = logging.FormatJSON
	}
	logger := logging.New(logging.Config{Level: level, Format: format})

	builder, err := buildBuilder()
	if err != nil {
		return err
	}
	metricsMW, exporter, err := builder.BuildPair()
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /fast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
			return
		}
		fmt.Fprintln(w, "ok, eventually")
	})
	mux.HandleFunc("GET /stream", streamHandler)
	mux.HandleFunc("GET /foo/{bar}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "bar=%s\n", r.PathValue("bar"))
	})
	mux.HandleFunc("GET /foo/{bar}/{baz}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "bar=%s baz=%s\n", r.PathValue("bar"), r.PathValue("baz"))
	})
	mux.Handle("GET /metrics", exporter.Handler())

	handler := requestID(requestLog(logger, metricsMW(mux)))

	logger.Info("listening", "addr", flagAddr)
	server := &http.Server{
		Addr:              flagAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// buildBuilder assembles the middleware builder from the config file and
// flags. The demo groups the /foo routes under one label and never reports
// the /metrics route itself.
func buildBuilder() (*httpmetrics.Builder, error) {
	var builder *httpmetrics.Builder
	if flagConfig != "" {
		cfg, err := config.LoadFromFile(flagConfig)
		if err != nil {
			return nil, err
		}
		builder = cfg.Builder()
	} else {
		builder = httpmetrics.NewBuilder().
			WithIgnorePatterns("/metrics").
			WithGroupPatterns("/foo", "/foo/{bar}", "/foo/{bar}/{baz}")
	}
	if flagPrefix != "" {
		builder = builder.WithPrefix(flagPrefix)
	}
	return builder, nil
}

// streamHandler writes a chunked response, one flushed chunk per 100ms.
func streamHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for i := range 10 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
		fmt.Fprintf(w, "chunk %d\n", i)
		flusher.Flush()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
