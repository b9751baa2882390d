package text

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/boardpost/gatekeeper/moderation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, negative float64, piiEntities int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Token "))

		var req sentimentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Text)
		assert.NotEmpty(t, req.LanguageCode)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/sentiment":
			var resp sentimentResponse
			resp.Sentiment = "NEGATIVE"
			resp.Scores.Negative = negative
			json.NewEncoder(w).Encode(resp)
		case "/v1/pii":
			var resp piiResponse
			for i := 0; i < piiEntities; i++ {
				resp.Entities = append(resp.Entities, struct {
					Type  string  `json:"type"`
					Score float64 `json:"score"`
				}{Type: "PHONE", Score: 0.99})
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.Error(w, "unknown path", 404)
		}
	}))
}

func TestAnalyzeTextDefaultLanguageSkipsPII(t *testing.T) {
	assert := assert.New(t)
	srv := newTestBackend(t, 0.42, 3)
	defer srv.Close()

	c := NewClient(srv.URL, "dummy-token")
	comp, err := c.AnalyzeText(context.Background(), "장난감 팝니다", moderation.ComponentTitle, "")
	require.NoError(t, err)
	assert.Equal(moderation.ComponentTitle, comp.Component)
	assert.InDelta(0.42, comp.NegativeScore, 0.001)
	// "ko" is not a PII-supported language, so the entities never get fetched
	assert.False(comp.PIIDetected)
	assert.Equal("sentiment=NEGATIVE, negative=0.420, piiCount=0 (pii-scan-skipped)", comp.Summary)
}

func TestAnalyzeTextSupportedLanguageScansPII(t *testing.T) {
	assert := assert.New(t)
	srv := newTestBackend(t, 0.1, 2)
	defer srv.Close()

	c := NewClient(srv.URL, "dummy-token")
	comp, err := c.AnalyzeText(context.Background(), "call me at 555-0100", moderation.ComponentContent, "en")
	require.NoError(t, err)
	assert.True(comp.PIIDetected)
	assert.Equal("sentiment=NEGATIVE, negative=0.100, piiCount=2", comp.Summary)
}

func TestAnalyzeTextEmptyShortCircuits(t *testing.T) {
	assert := assert.New(t)

	// no server at all: empty text must not hit the network
	c := NewClient("http://127.0.0.1:1", "dummy-token")
	comp, err := c.AnalyzeText(context.Background(), "   ", moderation.ComponentTitle, "en")
	require.NoError(t, err)
	assert.Zero(comp.NegativeScore)
	assert.False(comp.PIIDetected)
}

func TestAnalyzeTextTruncatesOversizedInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sentimentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Text), maxTextLength)
		assert.True(t, utf8.ValidString(req.Text))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sentimentResponse{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "dummy-token")
	_, err := c.AnalyzeText(context.Background(), strings.Repeat("a", maxTextLength*2), moderation.ComponentContent, "ko")
	require.NoError(t, err)
}

func TestTruncateTextKeepsRuneBoundary(t *testing.T) {
	assert := assert.New(t)

	short := "짧은 글"
	assert.Equal(short, truncateText(short))

	exact := strings.Repeat("a", maxTextLength)
	assert.Equal(exact, truncateText(exact))

	// hangul is 3 bytes per rune; the offset shift forces the byte cutoff to
	// land mid-rune, which must back up instead of splitting the character
	korean := "ab" + strings.Repeat("가", maxTextLength)
	got := truncateText(korean)
	assert.LessOrEqual(len(got), maxTextLength)
	assert.True(utf8.ValidString(got))
	assert.True(strings.HasSuffix(got, "가"))
}

func TestAnalyzeTextBackendErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", 403)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-token")
	_, err := c.AnalyzeText(context.Background(), "hello", moderation.ComponentTitle, "en")
	assert.Error(t, err)
}
