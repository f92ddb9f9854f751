package transcribe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(url, "k3y", "fa-IR", logging.Nop{})
	c.backoffBase = time.Millisecond
	return c
}

func TestTranscribe_JoinsAlternatives(t *testing.T) {
	var got recognizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k3y", r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[
			{"alternatives":[{"transcript":"سیب موز","confidence":0.9}]},
			{"alternatives":[{"transcript":" خیار "},{"transcript":""}]}
		]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("opus"), "webm")
	require.NoError(t, err)
	assert.Equal(t, "سیب موز خیار", text)

	assert.Equal(t, "WEBM_OPUS", got.Config.Encoding)
	assert.Equal(t, 48000, got.Config.SampleRateHertz)
	assert.Equal(t, "fa-IR", got.Config.LanguageCode)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("opus")), got.Audio.Content)
}

func TestTranscribe_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("x"), "wav")
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscribe_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"alternatives":[{"transcript":"ok"}]}]}`))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("x"), "wav")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTranscribe_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("x"), "wav")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(4), calls.Load())
}

func TestTranscribe_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad audio"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Transcribe(context.Background(), []byte("x"), "ogg")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "bad audio")
	assert.Equal(t, int32(1), calls.Load())
}

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		ext  string
		enc  string
		rate int
	}{
		{"wav", "LINEAR16", 0},
		{"webm", "WEBM_OPUS", 48000},
		{"ogg", "OGG_OPUS", 48000},
		{"mp3", "MP3", 0},
		{"m4a", "", 0},
	}
	for _, tt := range tests {
		enc, rate := encodingFor(tt.ext)
		assert.Equal(t, tt.enc, enc, tt.ext)
		assert.Equal(t, tt.rate, rate, tt.ext)
	}
}
