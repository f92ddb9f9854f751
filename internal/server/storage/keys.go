package storage

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

const (
	// AudioPrefix is the root of archived recordings.
	AudioPrefix = "voices"
	// PhotoPrefix is the root of profile photos.
	PhotoPrefix = "profile_photos"
	// KeepRecordings is how many recordings are retained per round.
	KeepRecordings = 2

	defaultAudioExt = "wav"
)

var audioExtensions = map[string]bool{
	"wav": true, "webm": true, "ogg": true, "mp3": true, "m4a": true,
}

var audioMIME = map[string]string{
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/m4a":   "m4a",
}

var photoExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true}

// AudioExtension picks the stored extension from the upload's filename,
// then its MIME type, falling back to wav.
func AudioExtension(filename, contentType string) string {
	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")); audioExtensions[ext] {
		return ext
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := audioMIME[mt]; ok {
			return ext
		}
	}
	return defaultAudioExt
}

// RoundPrefix is the folder holding every recording of one round.
func RoundPrefix(userName string, test, round int) string {
	return fmt.Sprintf("%s/%s/test_%d/round_%d/", AudioPrefix, userName, test, round)
}

// AudioKey names a recording made at the given time.
func AudioKey(userName string, test, round int, at time.Time, ext string) string {
	return RoundPrefix(userName, test, round) + at.UTC().Format("20060102_150405") + "." + ext
}

// PhotoFileName builds the public file name of a profile photo, or reports
// false when the upload's extension is not an accepted image type.
func PhotoFileName(userID, original string) (string, bool) {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(base), "."))
	if !photoExtensions[ext] || base == "" || base == "." || base == "/" {
		return "", false
	}
	return fmt.Sprintf("user_%s_%s", userID, sanitize(base)), true
}

// PhotoKey maps a public photo file name to its object key. Names with
// path separators are rejected.
func PhotoKey(fileName string) (string, bool) {
	if fileName == "" || strings.ContainsAny(fileName, "/\\") || strings.Contains(fileName, "..") {
		return "", false
	}
	return PhotoPrefix + "/" + fileName, true
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.ReplaceAll(b.String(), "..", "_")
}
