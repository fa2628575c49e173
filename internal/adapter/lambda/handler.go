// Package lambda adapts API Gateway proxy events to the in-process
// application.
//
// Each invocation is translated into an http.Request, served synchronously
// against the cached application handler, and translated back into a proxy
// response. The adapter never lets an invocation fail without a response: a
// send guard enforces that exactly one response leaves the handler, including
// on panics.
package lambda

import (
	"context"
	"fmt"
	"net/http/httptest"
	"runtime/debug"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/daybook-app/daybook-backend/internal/bootstrap"
	"github.com/daybook-app/daybook-backend/internal/logger"
)

// pingTimeout bounds the database probe after a 5xx application response.
const pingTimeout = time.Second

// Options controls adapter behavior.
type Options struct {
	// Production suppresses error details and stack traces in responses.
	Production bool
}

// Handler serves API Gateway proxy events against a lazily initialized
// application.
type Handler struct {
	init *bootstrap.Initializer
	opts Options
}

// NewHandler creates a Handler around the given initializer.
func NewHandler(init *bootstrap.Initializer, opts Options) *Handler {
	return &Handler{init: init, opts: opts}
}

// responder enforces the exactly-once send guarantee. The first response
// recorded wins; later sends are no-ops.
type responder struct {
	sent bool
	resp events.APIGatewayProxyResponse
}

func (r *responder) send(resp events.APIGatewayProxyResponse) {
	if r.sent {
		logger.Warn("response already sent, dropping duplicate", "status", resp.StatusCode)
		return
	}
	r.sent = true
	r.resp = resp
}

// Invoke handles a single API Gateway proxy event. It never returns a Go
// error; failures become HTTP error responses so the platform does not
// retry or mangle them.
func (h *Handler) Invoke(ctx context.Context, event events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	r := &responder{}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic during invocation", "panic", p)
			r.send(h.internalError(p, debug.Stack()))
		}
		resp = r.resp
		err = nil
	}()

	a, initErr := h.init.Get(ctx)
	if initErr != nil {
		r.send(h.initErrorResponse(initErr))
		return
	}

	req, reqErr := translateRequest(ctx, &event)
	if reqErr != nil {
		logger.Error("failed to translate request", "error", reqErr)
		r.send(h.internalError(reqErr, nil))
		return
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	r.send(translateResponse(rec))

	// A 5xx from the application may mean the database connection died
	// underneath a healthy-looking instance. Probe it and discard the
	// instance so the next invocation reconnects instead of reusing
	// known-bad state.
	if rec.Code >= 500 {
		pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		if pingErr := a.Store().Ping(pingCtx); pingErr != nil {
			logger.Warn("database unreachable after server error, resetting initializer", "error", pingErr)
			h.init.Reset()
		}
	}
	return
}

// initErrorResponse maps initialization failures to error responses.
//
// Configuration failures are permanent until an operator intervenes, so they
// get 503 with a remediation hint. Everything else is a generic 500.
func (h *Handler) initErrorResponse(initErr error) events.APIGatewayProxyResponse {
	kind, _ := bootstrap.KindOf(initErr)

	if kind == bootstrap.KindConfiguration {
		body := errorBody{
			Error: "service is not configured correctly",
			Code:  "CONFIG_ERROR",
			Hint:  "check database settings and the DAYBOOK_API_SECRET environment variable",
		}
		if !h.opts.Production {
			body.Detail = initErr.Error()
		}
		return errorResponse(503, body)
	}

	logger.Error("initialization failed", "kind", kind.String(), "error", initErr)
	body := errorBody{Error: "internal server error"}
	if !h.opts.Production {
		body.Detail = initErr.Error()
	}
	return errorResponse(500, body)
}

// internalError builds the generic 500 response for uncaught failures.
func (h *Handler) internalError(cause any, stack []byte) events.APIGatewayProxyResponse {
	body := errorBody{Error: "internal server error"}
	if !h.opts.Production {
		if e, ok := cause.(error); ok {
			body.Detail = e.Error()
		} else if cause != nil {
			body.Detail = fmt.Sprintf("%v", cause)
		}
		if stack != nil {
			body.Stack = string(stack)
		}
	}
	return errorResponse(500, body)
}
