package audio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/dygy/hum-grep/internal/errors"
)

const (
	MaxFileSize = 100 * 1024 * 1024 // 100MB
)

// Magic bytes for audio format detection
var (
	ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3} // Matroska / WebM
	flacMagic = []byte("fLaC")
	id3Magic  = []byte("ID3") // MP3 with ID3 tag
)

// Format represents an audio file format
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatWebM    Format = "webm"
	FormatM4A     Format = "m4a"
	FormatFLAC    Format = "flac"
	FormatUnknown Format = "unknown"
)

// allowedExtensions are the upload extensions accepted by the service.
var allowedExtensions = map[string]Format{
	".webm": FormatWebM,
	".wav":  FormatWAV,
	".mp3":  FormatMP3,
	".m4a":  FormatM4A,
	".flac": FormatFLAC,
}

// AllowedFile reports whether filename carries an accepted audio extension.
func AllowedFile(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ValidateInput checks if the input file is valid for processing
func ValidateInput(path string) (Format, error) {
	// Check file exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, path)
	}
	if err != nil {
		return FormatUnknown, fmt.Errorf("stat file: %w", err)
	}

	// Check file size
	if info.Size() > MaxFileSize {
		return FormatUnknown, fmt.Errorf("%w: maximum size is 100MB", apperrors.ErrFileTooLarge)
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	defer f.Close()

	// Read first 12 bytes for magic detection
	header := make([]byte, 12)
	n, err := f.Read(header)
	if err != nil || n < 4 {
		return FormatUnknown, fmt.Errorf("%w: could not read file header", apperrors.ErrCorruptedFile)
	}

	format := DetectFormat(header[:n], path)
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: please provide a WAV, MP3, WebM, M4A or FLAC file", apperrors.ErrUnsupportedFormat)
	}

	return format, nil
}

// DetectFormat checks magic bytes to determine the audio format, falling back
// to the file extension.
func DetectFormat(header []byte, name string) Format {
	n := len(header)

	// Check WAV (RIFF....WAVE)
	if n >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WAVE" {
		return FormatWAV
	}
	if bytes.HasPrefix(header, flacMagic) {
		return FormatFLAC
	}
	if bytes.HasPrefix(header, ebmlMagic) {
		return FormatWebM
	}
	// ISO base media: ....ftyp
	if n >= 8 && string(header[4:8]) == "ftyp" {
		return FormatM4A
	}

	// Check MP3 with ID3 tag
	if bytes.HasPrefix(header, id3Magic) {
		return FormatMP3
	}

	// Check MP3 frame sync
	if n >= 2 && header[0] == 0xFF && (header[1]&0xE0) == 0xE0 {
		return FormatMP3
	}

	if format, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return format
	}

	return FormatUnknown
}
