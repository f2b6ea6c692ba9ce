package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dinodial-gateway/internal/config"
	"dinodial-gateway/internal/gateway"
	"dinodial-gateway/internal/metrics"
)

type Server struct {
	httpServer *http.Server
}

func New(cfg *config.Config, logger *zap.Logger, service *gateway.Service, m *metrics.Metrics) *Server {
	handler := NewHandler(cfg, logger, service, m)
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Listen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Routes lists the local paths for the given prefix, in registry order:
// make call, list, detail, recording url.
func Routes(prefix string) []string {
	if prefix == config.RoutePrefixBare {
		return []string{"/call", "/list", "/detail/{call_id}", "/recording-url/{call_id}"}
	}
	return []string{"/api/call/{$}", "/api/list/{$}", "/api/detail/{call_id}", "/api/recording-url/{call_id}"}
}

// NewHandler builds the mux. m may be nil, in which case /metrics is not served.
func NewHandler(cfg *config.Config, logger *zap.Logger, service *gateway.Service, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler)
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	routes := Routes(cfg.Routes.Prefix)
	mux.HandleFunc(routes[0], service.HandleMakeCall)
	mux.HandleFunc(routes[1], service.HandleListCalls)
	mux.HandleFunc(routes[2], service.HandleCallDetail)
	mux.HandleFunc(routes[3], service.HandleRecordingURL)
	mux.HandleFunc("/", service.HandleUnsupported)

	handler := withRequestID(withLogging(withCORS(mux, cfg.CORS.AllowedOrigins), logger))
	return handler
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("x-request-id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("x-request-id", requestID)

		ctx := gateway.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withLogging(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.Info(
			"http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", rw.Header().Get("x-request-id")),
		)
	})
}

// withCORS answers preflight requests itself and allows any method and header.
// allowedOrigins may contain "*".
func withCORS(next http.Handler, allowedOrigins []string) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				w.Header().Set("Access-Control-Allow-Headers", reqHeaders)
			} else {
				w.Header().Set("Access-Control-Allow-Headers", "*")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
