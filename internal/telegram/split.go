package telegram

// MaxMessageLength is the chunk size used when sending, in runes. Telegram's
// hard limit is 4096.
const MaxMessageLength = 4000

// SplitMessage cuts text into chunks of at most limit runes. A chunk ends at
// its last newline when that newline lies past the middle of the chunk; the
// newline itself is dropped.
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut, skip := limit, 0
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut, skip = i, 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut+skip:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
