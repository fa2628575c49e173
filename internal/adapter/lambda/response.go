package lambda

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// translateResponse converts the recorded application response into an API
// Gateway proxy response.
//
// Every header with a defined value is copied. The status defaults to 200. A
// JSON content type triggers re-validation of the body; a body that claims to
// be JSON but does not parse is sent as plain text instead of failing the
// invocation.
func translateResponse(rec *httptest.ResponseRecorder) events.APIGatewayProxyResponse {
	status := rec.Code
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string)
	multiHeaders := make(map[string][]string)
	for name, values := range rec.Header() {
		if len(values) == 0 {
			continue
		}
		headers[name] = values[len(values)-1]
		multiHeaders[name] = values
	}

	body := rec.Body.String()

	contentType := rec.Header().Get("Content-Type")
	if body != "" && strings.Contains(strings.ToLower(contentType), "json") {
		if !json.Valid([]byte(body)) {
			headers["Content-Type"] = "text/plain; charset=utf-8"
			multiHeaders["Content-Type"] = []string{"text/plain; charset=utf-8"}
		}
	}

	return events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           headers,
		MultiValueHeaders: multiHeaders,
		Body:              body,
	}
}

// errorBody is the JSON shape of adapter-level error responses.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Hint  string `json:"hint,omitempty"`

	// Populated only outside production.
	Detail string `json:"detail,omitempty"`
	Stack  string `json:"stack,omitempty"`
}

// errorResponse builds a JSON error response.
func errorResponse(status int, body errorBody) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		payload = []byte(`{"error":"internal server error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(payload),
	}
}
