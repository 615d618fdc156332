package blob

import (
	"fmt"
	"time"
)

// Key layouts are part of the persisted contract: rows in the database refer
// to objects by these keys, so the formats below must stay stable.

// ResponseKey builds the key for a candidate's answer video:
//
//	interviews/{user}/{interview}/response_{question}_{epochMillis}.webm
func ResponseKey(userID, interviewID, questionID int64) string {
	return ResponseKeyAt(userID, interviewID, questionID, time.Now())
}

// ResponseKeyAt is ResponseKey with an explicit timestamp.
func ResponseKeyAt(userID, interviewID, questionID int64, t time.Time) string {
	return fmt.Sprintf("interviews/%d/%d/response_%d_%d.webm",
		userID, interviewID, questionID, t.UnixMilli())
}

// ResumeKey builds the key for an uploaded resume:
//
//	resumes/{user}/resume_{epochMillis}{ext}
//
// ext must be ".pdf" or ".docx"; anything else falls back to ".pdf".
func ResumeKey(userID int64, ext string) string {
	return ResumeKeyAt(userID, ext, time.Now())
}

// ResumeKeyAt is ResumeKey with an explicit timestamp.
func ResumeKeyAt(userID int64, ext string, t time.Time) string {
	switch ext {
	case ".pdf", ".docx":
	default:
		ext = ".pdf"
	}
	return fmt.Sprintf("resumes/%d/resume_%d%s", userID, t.UnixMilli(), ext)
}

// TTSAudioKey builds the key for synthesized question audio:
//
//	tts/question_{question}_{epochMillis}.mp3
func TTSAudioKey(questionID int64) string {
	return TTSAudioKeyAt(questionID, time.Now())
}

// TTSAudioKeyAt is TTSAudioKey with an explicit timestamp.
func TTSAudioKeyAt(questionID int64, t time.Time) string {
	return fmt.Sprintf("tts/question_%d_%d.mp3", questionID, t.UnixMilli())
}

// AvatarVideoKey builds the key for a freshly rendered avatar video:
//
//	avatar-videos/question_{question}_{epochMillis}.mp4
func AvatarVideoKey(questionID int64) string {
	return AvatarVideoKeyAt(questionID, time.Now())
}

// AvatarVideoKeyAt is AvatarVideoKey with an explicit timestamp.
func AvatarVideoKeyAt(questionID int64, t time.Time) string {
	return fmt.Sprintf("avatar-videos/question_%d_%d.mp4", questionID, t.UnixMilli())
}

// AvatarCacheKey builds the content-addressed cache key for an avatar video:
//
//	avatar-cache/{sha256-fingerprint}.mp4
func AvatarCacheKey(fingerprint string) string {
	return fmt.Sprintf("avatar-cache/%s.mp4", fingerprint)
}
