package storage

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxNameLen = 255

// windowsDeviceNames are reserved on Windows regardless of extension.
var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename reduces a client-supplied filename to a flat, portable
// name: unicode is folded to ASCII, path separators and whitespace become
// underscores, anything outside [A-Za-z0-9_.-] is dropped and leading or
// trailing dots and underscores are trimmed. The result may be empty when
// nothing usable remains.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)

	// Drop non-ASCII runes left over after decomposition (accents etc.).
	var ascii strings.Builder
	for _, r := range name {
		if r < utf8.RuneSelf {
			ascii.WriteRune(r)
		}
	}
	name = ascii.String()

	name = strings.ReplaceAll(name, "/", " ")
	name = strings.ReplaceAll(name, "\\", " ")
	name = strings.Join(strings.Fields(name), "_")

	var safe strings.Builder
	for _, r := range name {
		if isSafeRune(r) {
			safe.WriteRune(r)
		}
	}
	name = strings.Trim(safe.String(), "._")

	if name != "" {
		stem, _, _ := strings.Cut(name, ".")
		if windowsDeviceNames[strings.ToUpper(stem)] {
			name = "_" + name
		}
	}

	if len(name) > maxNameLen {
		ext := filepath.Ext(name)
		if len(ext) >= maxNameLen {
			ext = ""
		}
		name = name[:maxNameLen-len(ext)] + ext
	}

	return name
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '.', r == '-':
		return true
	}
	return false
}
