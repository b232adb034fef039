package llm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type recordingDoer struct {
	body string
}

func (r *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		r.body = string(b)
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func TestSamplingDoerAddsTopP(t *testing.T) {
	next := &recordingDoer{}
	req := httptest.NewRequest(http.MethodPost, "https://example.com/openai/deployments/gpt-4o/chat/completions?api-version=v",
		strings.NewReader(`{"model":"gpt-4o","messages":[],"temperature":0.9,"max_tokens":3000}`))

	_, err := newSamplingDoer(next, TopP).Do(req)
	require.NoError(t, err)

	assert.InDelta(t, TopP, gjson.Get(next.body, "top_p").Float(), 1e-9)
	assert.InDelta(t, Temperature, gjson.Get(next.body, "temperature").Float(), 1e-9)
	assert.Equal(t, int64(3000), gjson.Get(next.body, "max_tokens").Int())
	assert.Equal(t, int64(len(next.body)), req.ContentLength)
}

func TestSamplingDoerKeepsExistingTopP(t *testing.T) {
	next := &recordingDoer{}
	req := httptest.NewRequest(http.MethodPost, "https://example.com/v1/chat/completions",
		strings.NewReader(`{"top_p":0.5}`))

	_, err := newSamplingDoer(next, TopP).Do(req)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, gjson.Get(next.body, "top_p").Float(), 1e-9)
}

func TestSamplingDoerLeavesOtherPathsAlone(t *testing.T) {
	next := &recordingDoer{}
	req := httptest.NewRequest(http.MethodPost, "https://example.com/v1/embeddings", strings.NewReader(`{"input":"x"}`))

	_, err := newSamplingDoer(next, TopP).Do(req)
	require.NoError(t, err)
	assert.Equal(t, `{"input":"x"}`, next.body)
}
