// Package engine provides the client and protocol types for the native
// capture/transcription engine, reached over a Unix socket using NDJSON.
package engine

// Operation names accepted by the engine daemon.
const (
	opEnumerateInputDevices  = "enumerate_input_devices"
	opEnumerateOutputDevices = "enumerate_output_devices"
	opSetInputDeviceName     = "set_input_device_name"
	opSetOutputDeviceName    = "set_output_device_name"
	opStartRecording         = "start_recording"
	opStopRecording          = "stop_recording"
	opIsRecording            = "is_recording"
	opGetLiveTranscription   = "get_live_transcription"
	opGetCompleteTranscript  = "get_complete_transcription"
	opGetSummary             = "get_summary"
	opDeleteRecordingData    = "delete_recording_data"
)

// Command is sent from the client to the engine, one JSON line per call.
type Command struct {
	ID             string `json:"id"`
	Op             string `json:"op"`
	Name           string `json:"name,omitempty"`
	InputDevice    string `json:"inputDevice,omitempty"`
	OutputDevice   string `json:"outputDevice,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
}

// Response is returned by the engine after processing a command.
type Response struct {
	ID             string          `json:"id"`
	OK             bool            `json:"ok"`
	Error          string          `json:"error,omitempty"`
	NotFound       bool            `json:"notFound,omitempty"`
	Devices        []string        `json:"devices,omitempty"`
	Recording      *bool           `json:"recording,omitempty"`
	ConversationID int64           `json:"conversationId,omitempty"`
	Segments       []string        `json:"segments,omitempty"`
	Summary        *SummaryPayload `json:"summary,omitempty"`
}

// SummaryPayload carries the engine's summarization output.
type SummaryPayload struct {
	Result      string   `json:"result"`
	ActionItems []string `json:"actionItems"`
}
