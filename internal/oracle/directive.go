package oracle

import "strings"

const (
	imageSentinel = "GENERATE_IMAGE:"
	videoSentinel = "GENERATE_VIDEO:"
)

// ParseReply extracts at most one generation directive from raw model output.
// The sentinel token and everything after it on the same line are stripped
// from the user-facing text. A sentinel with no trailing text yields an empty
// prompt, not an error. When both sentinels appear, the earlier one wins.
func ParseReply(raw string) Reply {
	imgIdx := strings.Index(raw, imageSentinel)
	vidIdx := strings.Index(raw, videoSentinel)

	idx, sentinel := imgIdx, imageSentinel
	kind := KindImage
	if imgIdx < 0 || (vidIdx >= 0 && vidIdx < imgIdx) {
		idx, sentinel = vidIdx, videoSentinel
		kind = KindVideo
	}
	if idx < 0 {
		return Reply{Text: strings.TrimSpace(raw)}
	}

	rest := raw[idx+len(sentinel):]
	prompt := rest
	cleanedTail := ""
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		prompt = rest[:nl]
		cleanedTail = rest[nl:]
	}

	cleaned := strings.TrimSpace(stripSentinels(raw[:idx] + cleanedTail))
	return Reply{
		Text: cleaned,
		Directive: &Directive{
			Kind:   kind,
			Prompt: strings.TrimSpace(prompt),
		},
	}
}

// stripSentinels removes every sentinel occurrence and the rest of its line.
// A directive after the first carries no meaning, but its token must not
// reach the user either.
func stripSentinels(text string) string {
	for _, sentinel := range []string{imageSentinel, videoSentinel} {
		for {
			idx := strings.Index(text, sentinel)
			if idx < 0 {
				break
			}
			tail := text[idx+len(sentinel):]
			if nl := strings.IndexByte(tail, '\n'); nl >= 0 {
				tail = tail[nl:]
			} else {
				tail = ""
			}
			text = text[:idx] + tail
		}
	}
	return text
}

// Words that signal the user is asking for a piece to be designed or
// produced. A match is a safety net for replies where the model forgot to
// emit a directive.
var generationLexicon = []string{
	"ring", "necklace", "bracelet", "earring", "pendant", "brooch",
	"band", "chain", "jewel", "diamond", "gemstone", "sapphire",
	"emerald", "ruby", "gold", "silver", "platinum",
	"create", "generate", "design", "make", "draw", "show me", "visualize",
}

var videoLexicon = []string{
	"video", "rotate", "rotating", "rotation", "spin", "spinning",
	"360", "turntable", "animation", "animate",
}

// WantsGeneration reports whether the message matches the jewelry/action
// lexicon.
func WantsGeneration(message string) bool {
	return matchesAny(message, generationLexicon)
}

// WantsVideo reports whether the message or reply uses video/rotation
// vocabulary.
func WantsVideo(message, replyText string) bool {
	return matchesAny(message, videoLexicon) || matchesAny(replyText, videoLexicon)
}

func matchesAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
