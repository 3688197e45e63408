// Package bridge holds the outbound rewrite services: machine translation and
// AI refinement of drafted text.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// DefaultTranslateURL is the anonymous translate endpoint.
const DefaultTranslateURL = "https://translate.googleapis.com/translate_a/single"

// Translator calls the gtx translate endpoint.
type Translator struct {
	endpoint string
	client   *http.Client
}

var _ ports.Translator = (*Translator)(nil)

type TranslatorOption func(*Translator)

// WithEndpoint overrides the translate endpoint.
func WithEndpoint(endpoint string) TranslatorOption {
	return func(t *Translator) {
		t.endpoint = endpoint
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) TranslatorOption {
	return func(t *Translator) {
		t.client = client
	}
}

// NewTranslator creates a translator with a 15s timeout.
func NewTranslator(opts ...TranslatorOption) *Translator {
	t := &Translator{
		endpoint: DefaultTranslateURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Translate returns text translated into targetLang. sourceLang may be "auto".
// Failures are reported as *domain.ExternalCallError.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == "" {
		sourceLang = "auto"
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", &domain.ExternalCallError{Service: "translate", Err: err}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &domain.ExternalCallError{Service: "translate", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.ExternalCallError{Service: "translate", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &domain.ExternalCallError{Service: "translate", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	out, err := parseGTX(body)
	if err != nil {
		return "", &domain.ExternalCallError{Service: "translate", Err: err}
	}
	return out, nil
}

// parseGTX joins the translated segments of [[["translated","original",...],...],...].
func parseGTX(body []byte) (string, error) {
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("unexpected response: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("empty response")
	}

	var segments [][]any
	if err := json.Unmarshal(data[0], &segments); err != nil {
		return "", fmt.Errorf("unexpected segments: %w", err)
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
