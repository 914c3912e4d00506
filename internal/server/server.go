package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	eventbus "github.com/hanpama/fieldguide/internal/eventbus"
	events "github.com/hanpama/fieldguide/internal/events"
	executor "github.com/hanpama/fieldguide/internal/executor"
	language "github.com/hanpama/fieldguide/internal/language"
	reqid "github.com/hanpama/fieldguide/internal/reqid"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// json decodes numbers as encoding/json's Number so Int variables keep their
// exact value until coercion.
var json = jsoniter.Config{
	EscapeHTML:             true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses and validates requests, runs the executor, and writes
// {data, errors} responses.
type Handler struct {
	exec   *executor.Executor
	source *language.Schema
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL serves the in-browser IDE on GET requests that accept HTML.
	GraphiQL bool
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a GraphQL HTTP handler. Documents are validated against source
// before they reach the executor, so source must describe the same schema as
// sch (including introspection fields when the runtime serves them).
func New(runtime executor.Runtime, sch *schema.Schema, source *language.Schema, opts ...Option) (*Handler, error) {
	if runtime == nil || sch == nil {
		return nil, errors.New("server: runtime and schema are required")
	}
	if source == nil {
		return nil, errors.New("server: schema source is required for validation")
	}
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: executor.NewExecutor(runtime, sch), source: source, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r, RequestID: rid})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, RequestID: rid, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		writeJSON(w, status, requestError("method not allowed"), h.opt.Pretty)
		return
	}

	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, requestError(berr.Message), h.opt.Pretty)
		return
	}

	if batch != nil {
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, r.Method, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}
	writeJSON(w, status, h.executeOne(ctx, r.Method, req), h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, method string, req GraphQLRequest) any {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var ge *language.Error
		if errors.As(err, &ge) {
			return requestErrors(language.ErrorList{ge})
		}
		return requestError(err.Error())
	}
	if errs := language.ValidateQuery(h.source, doc); len(errs) > 0 {
		return requestErrors(errs)
	}

	opDef := doc.Operations.ForName(req.OperationName)
	if opDef == nil && req.OperationName == "" && len(doc.Operations) == 1 {
		opDef = doc.Operations[0]
	}
	opType := ""
	if opDef != nil {
		opType = string(opDef.Operation)
	}
	if opType == "mutation" && method == http.MethodGet {
		return requestError("mutations are not allowed over GET")
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Variables:     len(req.Variables),
	})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Variables:     len(req.Variables),
		Errors:        errs,
		Partial:       result.Data != nil && len(errs) > 0,
		Duration:      time.Since(start),
	})
	return result
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, *language.Error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.UnmarshalFromString(v, &vars); err != nil {
				return GraphQLRequest{}, nil, &language.Error{Message: "invalid 'variables' JSON"}
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, &language.Error{Message: "unsupported Content-Type"}
	}

	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, &language.Error{Message: "failed to read body"}
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, &language.Error{Message: errBodyTooLargeMessage}
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, &language.Error{Message: "empty batch"}
		}
		return GraphQLRequest{}, arr, nil
	}

	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, &language.Error{Message: "invalid JSON"}
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, &language.Error{Message: "missing 'query'"}
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

// failedRequest is the body for requests that never reached execution. It
// carries no data key.
type failedRequest struct {
	Errors []executor.GraphQLError `json:"errors"`
}

func requestError(msg string) failedRequest {
	return failedRequest{Errors: []executor.GraphQLError{{Message: msg}}}
}

func requestErrors(list language.ErrorList) failedRequest {
	out := failedRequest{Errors: make([]executor.GraphQLError, len(list))}
	for i, e := range list {
		ge := executor.GraphQLError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			ge.Locations = append(ge.Locations, executor.Location{Line: loc.Line, Column: loc.Column})
		}
		out.Errors[i] = ge
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		b = []byte(`{"errors":[{"message":"failed to encode response"}]}`)
	}
	_, _ = w.Write(append(b, '\n'))
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "text/html") {
			return true
		}
	}
	return false
}
