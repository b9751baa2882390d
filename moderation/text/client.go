// Package text wraps the external text-classification backend (sentiment
// scoring plus PII entity detection) behind the moderation.TextScorer
// contract.
package text

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/boardpost/gatekeeper/moderation"
	"github.com/boardpost/gatekeeper/util"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"
)

const (
	// backend rejects documents above this size; longer fields are truncated
	maxTextLength = 4500

	defaultLanguage = "ko"
)

// languages the PII entity detector supports; other languages skip the PII
// scan and note it in the component summary
var piiSupportedLanguages = map[string]bool{
	"en": true,
	"es": true,
}

type Client struct {
	Client          *http.Client
	Host            string
	APIToken        string
	DefaultLanguage string
	Limiter         *rate.Limiter
	Timeout         time.Duration
}

func NewClient(host, token string) *Client {
	return &Client{
		Client:          util.RobustHTTPClient(),
		Host:            host,
		APIToken:        token,
		DefaultLanguage: defaultLanguage,
		Limiter:         rate.NewLimiter(rate.Limit(20), 5),
		Timeout:         10 * time.Second,
	}
}

// truncateText caps a field at the backend document limit, backing up to a
// rune boundary so a split multi-byte character (the default language is
// "ko") never reaches the wire.
func truncateText(text string) string {
	if len(text) <= maxTextLength {
		return text
	}
	cut := maxTextLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

type sentimentRequest struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type sentimentResponse struct {
	Sentiment string `json:"sentiment"`
	Scores    struct {
		Positive float64 `json:"positive"`
		Negative float64 `json:"negative"`
		Neutral  float64 `json:"neutral"`
		Mixed    float64 `json:"mixed"`
	} `json:"scores"`
}

type piiResponse struct {
	Entities []struct {
		Type  string  `json:"type"`
		Score float64 `json:"score"`
	} `json:"entities"`
}

// AnalyzeText scores a single text field. Empty text short-circuits to a
// zero component without calling the backend.
func (c *Client) AnalyzeText(ctx context.Context, text, component, language string) (moderation.TextComponent, error) {
	out := moderation.TextComponent{Component: component}
	if strings.TrimSpace(text) == "" {
		return out, nil
	}

	lang := strings.ToLower(language)
	if lang == "" {
		lang = c.DefaultLanguage
	}
	text = truncateText(text)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		textAPIDuration.Observe(time.Since(start).Seconds())
	}()

	var sentiment sentimentResponse
	if err := c.post(ctx, "/v1/sentiment", sentimentRequest{Text: text, LanguageCode: lang}, &sentiment); err != nil {
		return out, fmt.Errorf("sentiment scoring failed: %w", err)
	}
	out.NegativeScore = sentiment.Scores.Negative

	piiScanned := false
	piiCount := 0
	if piiSupportedLanguages[lang] {
		piiScanned = true
		var pii piiResponse
		if err := c.post(ctx, "/v1/pii", sentimentRequest{Text: text, LanguageCode: lang}, &pii); err != nil {
			return out, fmt.Errorf("pii detection failed: %w", err)
		}
		piiCount = len(pii.Entities)
		out.PIIDetected = piiCount > 0
	} else {
		slog.Debug("skipping pii detection for unsupported language", "language", lang, "component", component)
	}

	out.Summary = fmt.Sprintf("sentiment=%s, negative=%.3f, piiCount=%d", sentiment.Sentiment, out.NegativeScore, piiCount)
	if !piiScanned {
		out.Summary += " (pii-scan-skipped)"
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+path, bytes.NewBuffer(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", c.APIToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gatekeeper/"+versioninfo.Short())

	res, err := c.Client.Do(req)
	if err != nil {
		textAPICount.WithLabelValues("error").Inc()
		return fmt.Errorf("text scorer request failed: %w", err)
	}
	defer res.Body.Close()

	textAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != 200 {
		return fmt.Errorf("text scorer request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read text scorer resp body: %w", err)
	}
	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("failed to parse text scorer resp JSON: %w", err)
	}
	return nil
}
