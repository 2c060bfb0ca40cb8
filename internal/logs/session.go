package logs

// ParseSessionMeta reads one session file and returns its metadata, or nil
// when the file is missing or contains no user/assistant line with a
// timestamp. The first type:"summary" line wins; later ones are ignored.
// lastMessageTime is simply the timestamp of the last qualifying physical
// line: session files are written append-only in chronological order, so no
// timestamp comparison is performed.
func ParseSessionMeta(projectKey, sessionID, path string) *Session {
	var (
		summary   string
		firstTime string
		lastTime  string
	)

	EachLine(path, func(line LogLine) {
		if line.Type == LineTypeSummary && summary == "" && line.Summary != "" {
			summary = line.Summary
			return
		}
		if (line.Type == LineTypeUser || line.Type == LineTypeAssistant) && line.Timestamp != "" {
			if firstTime == "" {
				firstTime = line.Timestamp
			}
			lastTime = line.Timestamp
		}
	})

	if firstTime == "" {
		return nil
	}

	return &Session{
		ProjectKey:       projectKey,
		SessionID:        sessionID,
		Summary:          summary,
		FirstMessageTime: firstTime,
		LastMessageTime:  lastTime,
	}
}

// ParseMessages returns the display message list for one session file:
// every user/assistant line whose extracted text is non-empty, in file
// order. Tool-result echoes are not filtered here; the summary layer owns
// that distinction. A missing file yields an empty list.
func ParseMessages(path string) []Message {
	var messages []Message

	EachLine(path, func(line LogLine) {
		if line.Type != LineTypeUser && line.Type != LineTypeAssistant {
			return
		}
		text := ExtractText(line.Message.Content)
		if text == "" {
			return
		}
		messages = append(messages, Message{
			UUID:      line.UUID,
			Type:      line.Type,
			Content:   text,
			Timestamp: line.Timestamp,
		})
	})

	return messages
}
