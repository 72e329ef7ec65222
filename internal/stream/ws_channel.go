package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// RemoteConfig holds the hosted realtime endpoint settings.
type RemoteConfig struct {
	// Endpoint is the websocket URL of the realtime transcription service.
	Endpoint string

	// APIKey authenticates the connection.
	APIKey string
}

// RemoteDialer opens websocket channels against the hosted realtime service.
type RemoteDialer struct {
	config RemoteConfig
}

// NewRemoteDialer creates a dialer for the hosted realtime service.
func NewRemoteDialer(config RemoteConfig) (*RemoteDialer, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	return &RemoteDialer{config: config}, nil
}

// Wire messages. The service speaks a JSON protocol: one setup message on
// connect, then realtime audio messages out and server content messages in.

type setupMessage struct {
	Setup setupPayload `json:"setup"`
}

type setupPayload struct {
	Model              string           `json:"model"`
	GenerationConfig   generationConfig `json:"generationConfig"`
	SystemInstruction  *content         `json:"systemInstruction,omitempty"`
	InputTranscription *struct{}        `json:"inputAudioTranscription"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	Audio inlineData `json:"audio"`
}

type serverMessage struct {
	ServerContent *serverContent `json:"serverContent,omitempty"`
}

type serverContent struct {
	InputTranscription *struct {
		Text string `json:"text"`
	} `json:"inputTranscription,omitempty"`
	ModelTurn    *content `json:"modelTurn,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
}

// wsChannel implements Channel over one websocket connection.
type wsChannel struct {
	conn   *websocket.Conn
	events chan Event

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

// Dial connects, sends the setup message, and starts the read loop.
func (d *RemoteDialer) Dial(ctx context.Context, cfg ChannelConfig) (Channel, error) {
	url := d.config.Endpoint + "?key=" + d.config.APIKey

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial realtime endpoint: %w", err)
	}

	setup := setupMessage{
		Setup: setupPayload{
			Model: cfg.Model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			InputTranscription: &struct{}{},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.Setup.SystemInstruction = &content{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}

	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send setup message: %w", err)
	}

	ch := &wsChannel{
		conn:   conn,
		events: make(chan Event, 64),
	}
	go ch.readLoop()

	return ch, nil
}

// Send transmits one PCM frame as a realtime audio message.
func (c *wsChannel) Send(frame []byte, mimeType string) error {
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			Audio: inlineData{
				MimeType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(frame),
			},
		},
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write audio message: %w", err)
	}
	return nil
}

// Events returns the inbound event stream.
func (c *wsChannel) Events() <-chan Event {
	return c.events
}

// Close releases the websocket connection. Idempotent.
func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// readLoop parses server messages into events until the connection ends.
func (c *wsChannel) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			c.events <- Event{Err: fmt.Errorf("realtime channel read failed: %w", err)}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.events <- Event{Err: fmt.Errorf("failed to parse server message: %w", err)}
			return
		}
		if msg.ServerContent == nil {
			continue
		}

		var ev Event
		if msg.ServerContent.InputTranscription != nil {
			ev.Text = msg.ServerContent.InputTranscription.Text
		}
		if msg.ServerContent.ModelTurn != nil {
			for _, p := range msg.ServerContent.ModelTurn.Parts {
				if p.InlineData == nil {
					continue
				}
				audio, decErr := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if decErr == nil {
					ev.Audio = append(ev.Audio, audio...)
				}
			}
		}
		ev.TurnComplete = msg.ServerContent.TurnComplete

		if ev.Text != "" || len(ev.Audio) > 0 || ev.TurnComplete {
			c.events <- ev
		}
	}
}
