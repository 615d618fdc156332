package avatargen

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/voxhire/voxhire/pkg/provider/tts"
)

// Normalize canonicalizes spoken text for fingerprinting: lowercased,
// trimmed, with every run of whitespace (spaces, tabs, newlines) collapsed
// to a single space. Questions that differ only in formatting synthesize to
// the same audio, so they must hash to the same key.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// TTSFingerprint addresses a synthesis result by everything that changes the
// audio: the normalized text and the full voice profile.
func TTSFingerprint(text string, voice tts.VoiceProfile) string {
	return fingerprint(
		Normalize(text),
		voice.VoiceID,
		voice.ModelID,
		formatFloat(voice.Stability),
		formatFloat(voice.SimilarityBoost),
	)
}

// AvatarFingerprint addresses a rendered video: the TTS inputs plus the
// portrait the vendor animates.
func AvatarFingerprint(text string, voice tts.VoiceProfile, portraitURL string) string {
	return fingerprint(
		Normalize(text),
		voice.VoiceID,
		voice.ModelID,
		formatFloat(voice.Stability),
		formatFloat(voice.SimilarityBoost),
		portraitURL,
	)
}

func fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// formatFloat renders floats with the shortest exact decimal form, so 0.5
// always fingerprints as "0.5" regardless of how it was configured.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
