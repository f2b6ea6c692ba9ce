package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"dinodial-gateway/internal/adapter"
	"dinodial-gateway/internal/auth"
	"dinodial-gateway/internal/calltemplate"
	"dinodial-gateway/internal/config"
	apierrors "dinodial-gateway/internal/errors"
	"dinodial-gateway/internal/metrics"
	"dinodial-gateway/internal/models"
	"dinodial-gateway/internal/validation"
)

const maxRequestBody = 1 << 20

type contextKey string

const contextKeyRequestID contextKey = "request_id"

type Service struct {
	cfg       *config.Config
	adapter   adapter.Adapter
	tokens    auth.TokenSource
	templates calltemplate.Provider
	client    *http.Client
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithTokenSource(ts auth.TokenSource) Option {
	return func(s *Service) { s.tokens = ts }
}

func WithTemplateProvider(p calltemplate.Provider) Option {
	return func(s *Service) { s.templates = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// NewService wires the gateway from an immutable config. The upstream client is
// built once and shared by every request.
func NewService(cfg *config.Config, ad adapter.Adapter, logger *zap.Logger, opts ...Option) *Service {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.UpstreamTimeout(),
		// One upstream request per operation; a redirect is answered as is.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	s := &Service{
		cfg:     cfg,
		adapter: ad,
		tokens:  auth.NewFromConfig(cfg),
		client:  client,
		logger:  logger,
	}
	if cfg.MakeCall.Mode == config.MakeCallModeTemplate {
		s.templates = calltemplate.NewFileProvider(cfg.MakeCall.PromptFile, cfg.MakeCall.EvaluationToolFile)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) HandleMakeCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, http.MethodPost)
		return
	}
	proxy[models.CallData](s, w, r, adapter.OpMakeCall, "")
}

func (s *Service) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	proxy[models.ListCallsData](s, w, r, adapter.OpListCalls, "")
}

func (s *Service) HandleCallDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	proxy[models.CallDetailData](s, w, r, adapter.OpCallDetail, r.PathValue("call_id"))
}

func (s *Service) HandleRecordingURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, http.MethodGet)
		return
	}
	proxy[models.RecordingURLData](s, w, r, adapter.OpRecordingURL, r.PathValue("call_id"))
}

func (s *Service) HandleUnsupported(w http.ResponseWriter, r *http.Request) {
	apierrors.Write(
		w,
		http.StatusNotFound,
		apierrors.KindNotFound,
		"path is not supported by this gateway",
		requestIDFromContext(r.Context()),
	)
}

// proxy runs one operation end to end: token, translation, the single upstream
// call and normalization into the typed schema T.
func proxy[T any](s *Service, w http.ResponseWriter, r *http.Request, op adapter.Operation, callID string) {
	requestID := requestIDFromContext(r.Context())

	route, ok := adapter.Lookup(op)
	if !ok {
		s.fail(w, op, apierrors.New(apierrors.KindInternal, "unknown operation"), requestID)
		return
	}
	if route.NeedsCallID() && strings.TrimSpace(callID) == "" {
		s.fail(w, op, apierrors.New(apierrors.KindInvalidRequest, "call_id is required"), requestID)
		return
	}

	token, err := s.tokens.Token(r)
	if err != nil {
		s.fail(w, op, err, requestID)
		return
	}

	var payload []byte
	if route.Method == http.MethodPost {
		payload, err = s.makeCallBody(w, r)
		if err != nil {
			s.fail(w, op, err, requestID)
			return
		}
	}

	// The upstream call is not cancelled when the caller disconnects.
	ctx := context.WithoutCancel(r.Context())
	upReq, err := s.translate(ctx, op, route, callID, token, payload)
	if err != nil {
		s.fail(w, op, apierrors.Wrap(apierrors.KindInternal, "failed to build upstream request", err), requestID)
		return
	}

	start := time.Now()
	resp, err := s.client.Do(upReq)
	s.metrics.ObserveUpstream(string(op), time.Since(start))
	if err != nil {
		s.fail(w, op, upstreamFailure(err), requestID)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.fail(w, op, apierrors.Wrap(apierrors.KindUpstreamUnreachable, "failed to read upstream response", err), requestID)
		return
	}

	outcome, err := Normalize[T](resp.StatusCode, respBody)
	if err != nil {
		s.logger.Warn("upstream body rejected",
			zap.String("operation", string(op)),
			zap.Int("upstream_status", resp.StatusCode),
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		s.metrics.ObserveFailure(string(op), string(apierrors.KindBodyParse))
		s.metrics.ObserveRequest(string(op), http.StatusBadGateway)
		writeJSON(w, http.StatusBadGateway, s.adapter.DescribeUnparseable(resp.StatusCode, respBody, requestID))
		return
	}

	if outcome.Rejected {
		s.logger.Info("upstream rejected request",
			zap.String("operation", string(op)),
			zap.Int("upstream_status", resp.StatusCode),
			zap.String("request_id", requestID),
		)
		s.metrics.ObserveFailure(string(op), string(apierrors.KindUpstreamRejected))
	}
	s.metrics.ObserveRequest(string(op), outcome.Status)
	writeJSON(w, outcome.Status, outcome.Body)
}

// translate builds the single outbound request for op.
func (s *Service) translate(ctx context.Context, op adapter.Operation, route adapter.Route, callID, token string, payload []byte) (*http.Request, error) {
	upstreamURL, err := s.adapter.BuildUpstreamURL(op, callID)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	upReq, err := http.NewRequestWithContext(ctx, route.Method, upstreamURL, body)
	if err != nil {
		return nil, err
	}

	s.adapter.ApplyAuthHeaders(upReq.Header, token)
	upReq.Header.Set("Accept", "application/json")
	if route.Method == http.MethodPost {
		upReq.Header.Set("Content-Type", "application/json")
	}
	return upReq, nil
}

// makeCallBody returns the upstream MakeCall payload: the caller's bytes
// unchanged in passthrough mode, or a body synthesized from the template
// provider and the configured vad engine.
func (s *Service) makeCallBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if s.templates != nil {
		tpl, err := s.templates.Load(r.Context())
		if err != nil {
			if apierrors.KindOf(err) == apierrors.KindInternal {
				return nil, apierrors.Wrap(apierrors.KindResourceUnavailable, "failed to load call template", err)
			}
			return nil, err
		}
		body, err := json.Marshal(models.MakeCallRequest{
			Prompt:         tpl.Prompt,
			EvaluationTool: tpl.EvaluationTool,
			VADEngine:      s.cfg.MakeCall.VADEngine,
		})
		if err != nil {
			return nil, apierrors.Wrap(apierrors.KindConfiguration, "failed to encode call template", err)
		}
		return body, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apierrors.New(apierrors.KindPayloadTooLarge, "request body too large")
		}
		return nil, apierrors.Wrap(apierrors.KindInvalidRequest, "failed to read request body", err)
	}
	if !json.Valid(body) {
		return nil, apierrors.New(apierrors.KindInvalidRequest, "invalid JSON payload")
	}

	if err := validation.ValidateMakeCall(body); err != nil {
		var schemaErr *validation.SchemaError
		if errors.As(err, &schemaErr) {
			return nil, apierrors.Wrap(apierrors.KindUnprocessable, schemaErr.Error(), err)
		}
		return nil, apierrors.Wrap(apierrors.KindInvalidRequest, "invalid JSON payload", err)
	}
	return body, nil
}

func (s *Service) fail(w http.ResponseWriter, op adapter.Operation, err error, requestID string) {
	kind := apierrors.KindOf(err)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.String("kind", string(kind)),
		zap.Error(err),
		zap.String("request_id", requestID),
	}
	if kind.Status() >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Info("request refused", fields...)
	}

	s.metrics.ObserveFailure(string(op), string(kind))
	s.metrics.ObserveRequest(string(op), kind.Status())
	apierrors.WriteError(w, err, requestID)
}

func upstreamFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierrors.Wrap(apierrors.KindUpstreamUnreachable, "upstream timeout", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apierrors.Wrap(apierrors.KindUpstreamUnreachable, "upstream timeout", err)
	}

	return apierrors.Wrap(apierrors.KindUpstreamUnreachable, "upstream request failed", err)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	apierrors.Write(
		w,
		http.StatusMethodNotAllowed,
		apierrors.KindMethodNotAllowed,
		"method not allowed",
		requestIDFromContext(r.Context()),
	)
}

func requestIDFromContext(ctx context.Context) string {
	v := ctx.Value(contextKeyRequestID)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
