package moderation

import "github.com/abadojack/whatlanggo"

// DetectLang returns the ISO 639-1 code for the most likely language of the
// text, or an empty string when the text is too short to classify.
func DetectLang(text string) string {
	if len(text) == 0 {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
