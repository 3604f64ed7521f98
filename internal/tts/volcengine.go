package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deepwander/deepwander/config"
)

const endpoint = "https://openspeech.bytedance.com/api/v1/tts"

// Client calls the Volcengine speech synthesis API.
type Client struct {
	appID       string
	accessToken string
	cluster     string
	voiceType   string
	endpoint    string
	httpClient  *http.Client
}

// ErrNotConfigured is returned by New when the TTS credentials are absent.
var ErrNotConfigured = fmt.Errorf("tts: app id and access token are required")

func New(cfg config.TTSConfig) (*Client, error) {
	if cfg.AppID == "" || cfg.AccessToken == "" {
		return nil, ErrNotConfigured
	}
	return &Client{
		appID:       cfg.AppID,
		accessToken: cfg.AccessToken,
		cluster:     cfg.Cluster,
		voiceType:   cfg.VoiceType,
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Params tune one synthesis request. Zero values fall back to the service
// defaults.
type Params struct {
	VoiceType  string
	Encoding   string
	SpeedRatio float64
}

type ttsRequest struct {
	App     ttsApp     `json:"app"`
	User    ttsUser    `json:"user"`
	Audio   ttsAudio   `json:"audio"`
	Request ttsPayload `json:"request"`
}

type ttsApp struct {
	AppID   string `json:"appid"`
	Token   string `json:"token"`
	Cluster string `json:"cluster"`
}

type ttsUser struct {
	UID string `json:"uid"`
}

type ttsAudio struct {
	VoiceType  string  `json:"voice_type"`
	Encoding   string  `json:"encoding"`
	SpeedRatio float64 `json:"speed_ratio"`
}

type ttsPayload struct {
	ReqID     string `json:"reqid"`
	Text      string `json:"text"`
	TextType  string `json:"text_type"`
	Operation string `json:"operation"`
}

type ttsResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Synthesize converts text to audio and returns the raw encoded bytes.
func (c *Client) Synthesize(ctx context.Context, text string, p Params) ([]byte, error) {
	voice := p.VoiceType
	if voice == "" {
		voice = c.voiceType
	}
	encoding := p.Encoding
	if encoding == "" {
		encoding = "mp3"
	}
	speed := p.SpeedRatio
	if speed == 0 {
		speed = 1.0
	}

	body, err := json.Marshal(ttsRequest{
		App:   ttsApp{AppID: c.appID, Token: c.accessToken, Cluster: c.cluster},
		User:  ttsUser{UID: uuid.NewString()},
		Audio: ttsAudio{VoiceType: voice, Encoding: encoding, SpeedRatio: speed},
		Request: ttsPayload{
			ReqID:     uuid.NewString(),
			Text:      text,
			TextType:  "plain",
			Operation: "query",
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	// The service expects a semicolon, not a space, after the scheme.
	req.Header.Set("Authorization", "Bearer;"+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts request: status %d: %s", resp.StatusCode, raw)
	}

	var out ttsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("tts response: %w", err)
	}
	if out.Code != 3000 {
		return nil, fmt.Errorf("tts failed: code %d: %s", out.Code, out.Message)
	}
	audio, err := base64.StdEncoding.DecodeString(out.Data)
	if err != nil {
		return nil, fmt.Errorf("tts audio decode: %w", err)
	}
	return audio, nil
}
