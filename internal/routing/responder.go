package routing

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	TraceID string            `json:"trace_id"`
	Meta    ErrorEnvelopeMeta `json:"meta"`
}

type ErrorEnvelopeMeta struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// ErrorCatalog is config/errors/catalog.yaml: the user-facing message of each
// stable error code.
type ErrorCatalog struct {
	messages map[string]string
}

type errorCatalogYAML struct {
	Errors []struct {
		Code    string `yaml:"code"`
		Message string `yaml:"message"`
	} `yaml:"errors"`
}

func ParseErrorCatalogYAML(b []byte) (*ErrorCatalog, error) {
	var raw errorCatalogYAML
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	c := &ErrorCatalog{messages: make(map[string]string, len(raw.Errors))}
	for _, e := range raw.Errors {
		code := strings.TrimSpace(e.Code)
		if code == "" {
			return nil, errors.New("error catalog: empty code")
		}
		c.messages[code] = strings.TrimSpace(e.Message)
	}
	return c, nil
}

func LoadErrorCatalog(path string) (*ErrorCatalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseErrorCatalogYAML(b)
}

func DefaultErrorCatalogPath() (string, error) {
	path := "config/errors/catalog.yaml"
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("routing: error catalog not found")
}

func (c *ErrorCatalog) Message(code string) (string, bool) {
	if c == nil {
		return "", false
	}
	m, ok := c.messages[code]
	return m, ok && m != ""
}

var activeCatalog atomic.Pointer[ErrorCatalog]

// SetErrorCatalog installs the catalog WriteError consults; nil removes it.
func SetErrorCatalog(c *ErrorCatalog) { activeCatalog.Store(c) }

func WriteError(w http.ResponseWriter, r *http.Request, rc RouteClass, status int, code string, message string) {
	message = userMessage(code, message)
	if isJSONOnly(rc) || wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ErrorEnvelope{
			Code:    code,
			Message: message,
			TraceID: traceIDFromRequest(r),
			Meta: ErrorEnvelopeMeta{
				Path:   r.URL.Path,
				Method: r.Method,
			},
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("<!doctype html><html><body>"))
	_, _ = w.Write([]byte(message))
	_, _ = w.Write([]byte("</body></html>"))
}

// userMessage keeps explicit messages. A blank message, or one that merely
// repeats the code, is replaced by the catalog entry or a humanized code.
func userMessage(code string, message string) string {
	message = strings.TrimSpace(message)
	if message != "" && !strings.EqualFold(message, code) {
		return message
	}
	if m, ok := activeCatalog.Load().Message(code); ok {
		return m
	}
	return humanizeCode(code)
}

func humanizeCode(code string) string {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(code, "_", " ")))
	if len(words) == 0 {
		return "Request failed."
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func isJSONOnly(rc RouteClass) bool {
	return rc == RouteClassInternalAPI || rc == RouteClassPublicAPI
}

func traceIDFromRequest(r *http.Request) string {
	traceparent := strings.TrimSpace(r.Header.Get("traceparent"))
	if traceparent == "" {
		return ""
	}
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return ""
	}
	traceID := strings.ToLower(parts[1])
	if len(traceID) != 32 || traceID == "00000000000000000000000000000000" {
		return ""
	}
	for _, ch := range traceID {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return ""
		}
	}
	return traceID
}
