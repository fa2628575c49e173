package lambda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// reservedHeaderPrefixes are platform-injected header prefixes that must not
// reach the application.
var reservedHeaderPrefixes = []string{"x-amz-", "x-vercel-"}

// reservedHeaders are individual platform headers dropped from forwarded
// requests. Host and connection describe the hop to the platform, not the
// application.
var reservedHeaders = map[string]bool{
	"host":       true,
	"connection": true,
}

// isReservedHeader reports whether the header must be dropped, matching
// case-insensitively.
func isReservedHeader(name string) bool {
	lower := strings.ToLower(name)
	if reservedHeaders[lower] {
		return true
	}
	for _, prefix := range reservedHeaderPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// splitPathQuery strips an embedded query string from the event path. Some
// platforms leave the raw query glued to the path; routing must see the bare
// path and the parameters must survive as query values.
func splitPathQuery(rawPath string) (path string, query url.Values) {
	idx := strings.Index(rawPath, "?")
	if idx < 0 {
		return rawPath, nil
	}
	path = rawPath[:idx]
	parsed, err := url.ParseQuery(rawPath[idx+1:])
	if err != nil {
		// Unparseable query suffix is dropped from routing but not fatal.
		return path, nil
	}
	return path, parsed
}

// decodeBody normalizes the event body. Bodies arrive in one of three shapes:
// absent, raw text, or base64-encoded bytes. A decode failure degrades to the
// raw string instead of failing the invocation.
func decodeBody(event *events.APIGatewayProxyRequest) []byte {
	if event.Body == "" {
		return nil
	}
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err == nil {
			return decoded
		}
	}
	return []byte(event.Body)
}

// translateRequest converts an API Gateway proxy event into an http.Request
// the application router can serve.
func translateRequest(ctx context.Context, event *events.APIGatewayProxyRequest) (*http.Request, error) {
	method := event.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}

	path, embedded := splitPathQuery(event.Path)
	if path == "" {
		path = "/"
	}

	query := url.Values{}
	for key, values := range event.MultiValueQueryStringParameters {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	for key, v := range event.QueryStringParameters {
		if _, ok := query[key]; !ok {
			query.Add(key, v)
		}
	}
	for key, values := range embedded {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	target := url.URL{Path: path, RawQuery: query.Encode()}

	body := decodeBody(event)

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	// Forward headers, dropping platform-reserved ones.
	for name, values := range event.MultiValueHeaders {
		if isReservedHeader(name) {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	for name, v := range event.Headers {
		if isReservedHeader(name) {
			continue
		}
		if _, ok := req.Header[http.CanonicalHeaderKey(name)]; !ok {
			req.Header.Set(name, v)
		}
	}

	// A textual body that parses as JSON is forwarded as JSON.
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		if json.Valid(body) {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "text/plain")
		}
	}

	if ip := event.RequestContext.Identity.SourceIP; ip != "" {
		req.RemoteAddr = ip
	}

	return req, nil
}
