package storage

import (
	"crypto/rand"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// BuildObjectKey namespaces an upload under its competition with a
// randomized filename and the original extension:
// <competitionID>/<unix-millis>-<random>.<ext>
func BuildObjectKey(competitionID, originalName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d-%s.%s", competitionID, time.Now().UnixMilli(), randomToken(9), ext)
}

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for key generation
		panic(err)
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(buf)
}
