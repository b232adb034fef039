package llm

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Doer matches the HTTP client interface the langchaingo OpenAI client accepts.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// samplingDoer adds top_p to chat-completions bodies. The langchaingo OpenAI
// client accepts llms.WithTopP but never puts it on the wire.
type samplingDoer struct {
	next Doer
	topP float64
}

func newSamplingDoer(next Doer, topP float64) *samplingDoer {
	if next == nil {
		next = http.DefaultClient
	}
	return &samplingDoer{next: next, topP: topP}
}

func (d *samplingDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Body == nil || !strings.HasSuffix(req.URL.Path, "/chat/completions") {
		return d.next.Do(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if !gjson.GetBytes(body, "top_p").Exists() {
		if body, err = sjson.SetBytes(body, "top_p", d.topP); err != nil {
			return nil, fmt.Errorf("set top_p: %w", err)
		}
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return d.next.Do(req)
}
