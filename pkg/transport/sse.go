package transport

import (
	"bufio"
	"encoding/json"
)

// SSE response headers.  Buffering must stay off so each frame reaches the
// client as soon as it is flushed.
const (
	ContentTypeEventStream = "text/event-stream"
	CacheControlNoStore    = "no-cache, no-store"
)

/*
SSEWriter encodes protocol events as Server-Sent Events frames:

	event: <kind>\r\n
	data: <json>\r\n
	\r\n

flushed per frame.  A write or flush error means the client is gone; the
caller should stop the stream silently.
*/
type SSEWriter struct {
	writer *bufio.Writer
}

func NewSSEWriter(writer *bufio.Writer) *SSEWriter {
	return &SSEWriter{writer: writer}
}

// Write emits one frame named kind carrying payload as its data line.
func (sse *SSEWriter) Write(kind string, payload any) error {
	data, err := json.Marshal(payload)

	if err != nil {
		return err
	}

	if _, err := sse.writer.WriteString("event: " + kind + "\r\n"); err != nil {
		return err
	}

	if _, err := sse.writer.WriteString("data: "); err != nil {
		return err
	}

	if _, err := sse.writer.Write(data); err != nil {
		return err
	}

	if _, err := sse.writer.WriteString("\r\n\r\n"); err != nil {
		return err
	}

	return sse.writer.Flush()
}
