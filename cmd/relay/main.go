package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"vaspwire/internal/app"
	"vaspwire/internal/relay/memrelay"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		log.Trace("Relay request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr,
			"status", sw.status, "bytes", sw.bytes, "elapsed", time.Since(start))
	})
}

func run(addr string) error {
	node := memrelay.New()
	srv, err := node.Server()
	if err != nil {
		return err
	}
	defer srv.Stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", srv.WebsocketHandler([]string{"*"}))
	mux.Handle("/", srv)
	hs := &http.Server{
		Addr:              addr,
		Handler:           accessLog(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	log.Info("Relay listening", "addr", addr, "http", "/", "ws", "/ws")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info("Relay shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	var (
		addr      string
		verbosity string
	)
	root := &cobra.Command{
		Use:   "relay",
		Short: "In-memory relay node speaking the shh JSON-RPC API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.SetupLogging(os.Stderr, verbosity, false); err != nil {
				return err
			}
			return run(addr)
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8545", "listen address")
	root.Flags().StringVar(&verbosity, "verbosity", "info", "log level (trace, debug, info, warn, error)")
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
