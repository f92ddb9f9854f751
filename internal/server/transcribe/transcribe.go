// Package transcribe turns recorded audio into text through the Google
// Cloud Speech-to-Text REST API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/sethvargo/go-retry"
)

// ErrUpstream is returned when the speech API rejects a request.
var ErrUpstream = errors.New("speech api error")

// Transcriber converts audio to a transcript. ext is the container
// extension of the recording (wav, webm, ogg, mp3, m4a).
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, ext string) (string, error)
}

type recognitionConfig struct {
	Encoding        string `json:"encoding,omitempty"`
	SampleRateHertz int    `json:"sampleRateHertz,omitempty"`
	LanguageCode    string `json:"languageCode"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// encodingFor maps a container extension to the API's encoding and
// sample rate. WAV headers carry their own rate.
func encodingFor(ext string) (string, int) {
	switch ext {
	case "wav":
		return "LINEAR16", 0
	case "webm":
		return "WEBM_OPUS", 48000
	case "ogg":
		return "OGG_OPUS", 48000
	case "mp3":
		return "MP3", 0
	default:
		return "", 0
	}
}

// Client calls speech:recognize.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	language    string
	maxRetries  uint64
	backoffBase time.Duration
	logger      logging.Logger
}

// NewClient creates a client for the given endpoint, key and language code.
func NewClient(endpoint, apiKey, language string, logger logging.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		endpoint:    endpoint,
		apiKey:      apiKey,
		language:    language,
		maxRetries:  3,
		backoffBase: 500 * time.Millisecond,
		logger:      logger.With("module", "transcribe"),
	}
}

// Transcribe sends the recording and joins every alternative transcript
// with single spaces. Network errors, 429 and 5xx answers are retried with
// exponential backoff.
func (c *Client) Transcribe(ctx context.Context, audio []byte, ext string) (string, error) {
	body, err := c.buildRequest(audio, ext)
	if err != nil {
		return "", err
	}

	var resp recognizeResponse
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := c.call(ctx, body)
		if err != nil {
			return err
		}
		resp = *r
		return nil
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for _, res := range resp.Results {
		for _, alt := range res.Alternatives {
			if t := strings.TrimSpace(alt.Transcript); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func (c *Client) buildRequest(audio []byte, ext string) ([]byte, error) {
	var req recognizeRequest
	req.Config.Encoding, req.Config.SampleRateHertz = encodingFor(ext)
	req.Config.LanguageCode = c.language
	req.Audio.Content = base64.StdEncoding.EncodeToString(audio)

	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode recognize request: %w", err)
	}
	return b, nil
}

func (c *Client) call(ctx context.Context, body []byte) (*recognizeResponse, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("speech endpoint: %w", err)
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "speech request failed", "error", err)
		return nil, retry.RetryableError(err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, retry.RetryableError(err)
	}

	if res.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: status %d: %s", ErrUpstream, res.StatusCode, strings.TrimSpace(string(payload)))
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			c.logger.Warn(ctx, "speech api transient failure", "status", res.StatusCode)
			return nil, retry.RetryableError(err)
		}
		return nil, err
	}

	var out recognizeResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return &out, nil
}
