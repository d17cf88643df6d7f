package util

import "bytes"

// ExtractSSEData extracts the data payload from an SSE event.
// SSE format can be: "event: xxx\ndata: {...}\n\n" or "data: {...}\n\n".
// Multi-line data fields are joined with \n; event/id/retry fields are ignored.
func ExtractSSEData(event []byte) []byte {
	event = bytes.TrimSpace(event)
	if len(event) == 0 {
		return nil
	}

	var dataLines [][]byte
	lines := bytes.Split(event, []byte("\n"))
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimSpace(line[5:])
			if len(data) > 0 {
				dataLines = append(dataLines, data)
			}
		}
	}

	if len(dataLines) == 0 {
		// No data: prefix found, maybe raw JSON?
		if bytes.HasPrefix(event, []byte("{")) || bytes.Equal(event, []byte("[DONE]")) {
			return event
		}
		return nil
	}

	return bytes.Join(dataLines, []byte("\n"))
}

// ExtractSSEEventName returns the value of the event: field, if present.
func ExtractSSEEventName(event []byte) string {
	lines := bytes.Split(event, []byte("\n"))
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if bytes.HasPrefix(line, []byte("event:")) {
			return string(bytes.TrimSpace(line[6:]))
		}
	}
	return ""
}
