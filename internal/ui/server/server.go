// Package server serves the browser client: the page shell, the WebAssembly
// bundle and, optionally, a same-origin proxy to the upload service.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Its-donkey/dynamix-mint/internal/ui/model"
	"github.com/Its-donkey/dynamix-mint/logging"
)

//go:embed index.html
var defaultIndex []byte

// Options configures the UI HTTP server.
type Options struct {
	Listen    string
	AssetsDir string
	Boot      model.BootConfig
	// ProxyUpload forwards /upload and /ipfs/ to Boot.UploadURL so the
	// browser can stay on one origin. The page is then told to use its own
	// origin for uploads.
	ProxyUpload bool
	Logger      *logging.Logger
}

type server struct {
	assetsDir string
	boot      model.BootConfig
	index     []byte
	proxy     http.Handler
	logger    *logging.Logger
}

func newServer(opts Options) (*server, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	assetsPath, err := filepath.Abs(opts.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve assets dir: %w", err)
	}

	srv := &server{assetsDir: assetsPath, boot: opts.Boot, logger: opts.Logger}

	if opts.ProxyUpload {
		target, err := url.Parse(opts.Boot.UploadURL)
		if err != nil || target.Host == "" {
			return nil, fmt.Errorf("proxy target %q: invalid upload url", opts.Boot.UploadURL)
		}
		srv.proxy = uploadProxyHandler(target, srv.logger)
		srv.boot.UploadURL = ""
	}

	shell := defaultIndex
	if data, err := os.ReadFile(filepath.Join(assetsPath, "index.html")); err == nil {
		shell = data
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read index: %w", err)
	}
	srv.index, err = renderIndex(shell, srv.boot)
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func uploadProxyHandler(target *url.URL, logger *logging.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = otelhttp.NewTransport(http.DefaultTransport)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("proxy", "upload proxy failed", err, map[string]any{"path": r.URL.Path})
		http.Error(w, "upload service unavailable", http.StatusBadGateway)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Host = target.Host
		proxy.ServeHTTP(w, r)
	})
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/config.json", s.handleConfig)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if s.proxy != nil {
		mux.Handle("/upload", s.proxy)
		mux.Handle("/ipfs/", s.proxy)
	}
	return logging.NewHTTPLogger(s.logger).Middleware(otelhttp.NewHandler(mux, "ui-server"))
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/" && r.URL.Path != "/mint" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(s.index)
	}
}

func (s *server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	respondJSON(w, http.StatusOK, s.boot)
}

// Run serves the UI until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	srv, err := newServer(opts)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              opts.Listen,
		Handler:           srv.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	upload := srv.boot.UploadURL
	if srv.proxy != nil {
		upload = "proxied to " + strings.TrimRight(opts.Boot.UploadURL, "/")
	}
	srv.logger.Info("server", "serving DynamiX UI", map[string]any{"addr": opts.Listen, "assets": srv.assetsDir, "upload": upload})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}
