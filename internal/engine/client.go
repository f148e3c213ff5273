package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"meetnote/internal/domain"
)

// Client communicates with the engine daemon over a Unix socket. One request
// line yields one response line; the mutex serializes callers on the shared
// connection.
type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	log     zerolog.Logger
	mu      sync.Mutex
}

// Connect dials the engine daemon socket.
func Connect(socketPath string, dialTimeout time.Duration, log zerolog.Logger) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to engine: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	return &Client{
		conn:    conn,
		scanner: scanner,
		log:     log.With().Str("component", "engine").Logger(),
	}, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) call(ctx context.Context, cmd Command) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	cmd.ID = uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("read response: %w", err)
		}
		return Response{}, errors.New("engine connection closed")
	}

	var resp Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if resp.ID != cmd.ID {
		return Response{}, fmt.Errorf("%w: response id %q does not match request %q",
			domain.ErrMalformedResponse, resp.ID, cmd.ID)
	}
	if !resp.OK {
		if resp.NotFound {
			return Response{}, domain.ErrArtifactNotFound
		}
		if resp.Error == "" {
			return Response{}, fmt.Errorf("%w: failure without error detail", domain.ErrMalformedResponse)
		}
		return Response{}, fmt.Errorf("engine %s: %s", cmd.Op, resp.Error)
	}
	return resp, nil
}

func (c *Client) enumerate(ctx context.Context, op string) ([]string, error) {
	resp, err := c.call(ctx, Command{Op: op})
	if err != nil {
		return nil, err
	}
	// The daemon enumerates whatever the OS reports; blank entries are not
	// valid device names.
	return lo.Filter(resp.Devices, func(name string, _ int) bool {
		return name != ""
	}), nil
}

// EnumerateInputDevices lists capture devices known to the engine.
func (c *Client) EnumerateInputDevices(ctx context.Context) ([]string, error) {
	return c.enumerate(ctx, opEnumerateInputDevices)
}

// EnumerateOutputDevices lists playback devices known to the engine.
func (c *Client) EnumerateOutputDevices(ctx context.Context) ([]string, error) {
	return c.enumerate(ctx, opEnumerateOutputDevices)
}

// SetInputDevice makes a capture device the engine's active one.
func (c *Client) SetInputDevice(ctx context.Context, name string) error {
	_, err := c.call(ctx, Command{Op: opSetInputDeviceName, Name: name})
	return err
}

// SetOutputDevice makes a playback device the engine's active one,
// retargeting live audio immediately.
func (c *Client) SetOutputDevice(ctx context.Context, name string) error {
	_, err := c.call(ctx, Command{Op: opSetOutputDeviceName, Name: name})
	return err
}

// StartRecording begins capture against the given device pair.
func (c *Client) StartRecording(ctx context.Context, inputDevice, outputDevice string, conversationID int64) error {
	_, err := c.call(ctx, Command{
		Op:             opStartRecording,
		InputDevice:    inputDevice,
		OutputDevice:   outputDevice,
		ConversationID: conversationID,
	})
	return err
}

// StopRecording ends capture for the conversation.
func (c *Client) StopRecording(ctx context.Context, conversationID int64) error {
	_, err := c.call(ctx, Command{Op: opStopRecording, ConversationID: conversationID})
	return err
}

// RecordingState reads the engine-side recording state.
func (c *Client) RecordingState(ctx context.Context) (domain.RecordingState, error) {
	resp, err := c.call(ctx, Command{Op: opIsRecording})
	if err != nil {
		return domain.RecordingState{}, err
	}
	if resp.Recording == nil {
		return domain.RecordingState{}, fmt.Errorf("%w: is_recording reply missing recording flag",
			domain.ErrMalformedResponse)
	}
	return domain.RecordingState{
		Recording:      *resp.Recording,
		ConversationID: resp.ConversationID,
	}, nil
}

// LiveTranscription reads the evolving transcript of the active recording.
func (c *Client) LiveTranscription(ctx context.Context) (domain.Transcript, error) {
	resp, err := c.call(ctx, Command{Op: opGetLiveTranscription})
	if err != nil {
		return domain.Transcript{}, err
	}
	return domain.Transcript{Segments: resp.Segments}, nil
}

// CompleteTranscription reads the final transcript of a stopped recording.
func (c *Client) CompleteTranscription(ctx context.Context, conversationID int64) (domain.Transcript, error) {
	resp, err := c.call(ctx, Command{Op: opGetCompleteTranscript, ConversationID: conversationID})
	if err != nil {
		return domain.Transcript{}, err
	}
	return domain.Transcript{Segments: resp.Segments}, nil
}

// Summary fetches the engine's summarization output for a conversation.
func (c *Client) Summary(ctx context.Context, conversationID int64) (domain.Summary, error) {
	resp, err := c.call(ctx, Command{Op: opGetSummary, ConversationID: conversationID})
	if err != nil {
		return domain.Summary{}, err
	}
	if resp.Summary == nil {
		return domain.Summary{}, fmt.Errorf("%w: get_summary reply missing summary",
			domain.ErrMalformedResponse)
	}
	return domain.Summary{
		Result:      resp.Summary.Result,
		ActionItems: resp.Summary.ActionItems,
	}, nil
}

// DeleteRecordingData removes the engine's artifacts for a conversation.
// Absence is reported as domain.ErrArtifactNotFound.
func (c *Client) DeleteRecordingData(ctx context.Context, conversationID int64) error {
	_, err := c.call(ctx, Command{Op: opDeleteRecordingData, ConversationID: conversationID})
	return err
}
