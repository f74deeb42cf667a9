package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dygy/hum-grep/internal/audio"
	"github.com/dygy/hum-grep/internal/melody"
	"github.com/dygy/hum-grep/internal/midi"
	"github.com/dygy/hum-grep/internal/strudel"
	"github.com/dygy/hum-grep/internal/workspace"
)

// Client-facing messages
const (
	msgNoFile          = "no audio file found"
	msgNoFilename      = "no file selected"
	msgUnsupported     = "unsupported file format, please upload an audio file"
	msgTooLarge        = "file too large"
	msgConversion      = "audio format conversion failed"
	msgProcessing      = "audio processing failed"
	msgInvalidRequest  = "invalid request body"
	multipartMaxMemory = 32 << 20
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type strudelRequest struct {
	Notes      []melody.Note `json:"notes"`
	BPM        float64       `json:"bpm"`
	Instrument string        `json:"instrument"`
	Style      string        `json:"style"`
	Key        string        `json:"key"`
}

type strudelResponse struct {
	Pattern string `json:"pattern"`
	Code    string `json:"code"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Message:   "hum-grep melody service is running",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleExtractMelody decodes an uploaded recording and returns the melody as JSON.
// A recording without a melody is still a 200 with success=false.
func (s *Server) handleExtractMelody(w http.ResponseWriter, r *http.Request) {
	buf, ok := s.decodeUpload(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.orchestrator.Extract(buf))
}

// handleExtractMIDI returns the melody as a Standard MIDI File.
func (s *Server) handleExtractMIDI(w http.ResponseWriter, r *http.Request) {
	buf, ok := s.decodeUpload(w, r)
	if !ok {
		return
	}

	result := s.orchestrator.Extract(buf)
	if len(result.Notes) == 0 {
		s.writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	bpm := midi.DefaultBPM
	if v, err := strconv.ParseFloat(r.FormValue("bpm"), 64); err == nil && v > 0 {
		bpm = v
	}

	var out bytes.Buffer
	if err := midi.Write(&out, result.Notes, bpm); err != nil {
		s.logger.Error("midi export failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "midi export failed")
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", `attachment; filename="melody.mid"`)
	w.Write(out.Bytes())
}

// handleProcessAudio returns the cleaned-up recording as a WAV attachment.
func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	buf, ok := s.decodeUpload(w, r)
	if !ok {
		return
	}

	processed, err := audio.Preprocess(buf)
	if err != nil {
		s.logger.Warn("preprocess failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", msgProcessing, err))
		return
	}

	ws, err := workspace.Create()
	if err != nil {
		s.logger.Error("workspace failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, msgProcessing)
		return
	}
	defer ws.Cleanup()

	s.logger.Debug("processing audio",
		"request_id", middleware.GetReqID(r.Context()),
		"workspace", ws.ID,
		"duration", buf.Duration(),
	)

	if err := writeWAV(ws.Processed(), processed); err != nil {
		s.logger.Error("encode failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, msgProcessing)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `attachment; filename="processed_audio.wav"`)
	http.ServeFile(w, r, ws.Processed())
}

// handleStrudel renders notes as Strudel code.
func (s *Server) handleStrudel(w http.ResponseWriter, r *http.Request) {
	var req strudelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	style, err := strudel.ParseStyle(req.Style)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	gen := strudel.NewGeneratorWithStyle(16, style)
	gen.SetChordKey(req.Key)

	s.writeJSON(w, http.StatusOK, strudelResponse{
		Pattern: strudel.Pattern(req.Notes, req.BPM, req.Instrument),
		Code:    gen.Generate(req.Notes, req.BPM),
	})
}

// decodeUpload validates the multipart "audio" field and decodes it. On
// failure the response has been written and ok is false.
func (s *Server) decodeUpload(w http.ResponseWriter, r *http.Request) (*audio.Buffer, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)

	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, msgNoFile)
		return nil, false
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		// A part without a filename is parsed as a plain form value.
		if _, ok := r.MultipartForm.Value["audio"]; ok {
			s.writeError(w, http.StatusBadRequest, msgNoFilename)
			return nil, false
		}
		s.writeError(w, http.StatusBadRequest, msgNoFile)
		return nil, false
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, msgNoFilename)
		return nil, false
	}
	if !audio.AllowedFile(header.Filename) {
		s.writeError(w, http.StatusBadRequest, msgUnsupported)
		return nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, msgNoFile)
		return nil, false
	}

	buf, err := s.decoder.Decode(r.Context(), data, header.Filename)
	if err != nil {
		s.logger.Warn("decode failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		s.writeError(w, http.StatusInternalServerError, msgConversion)
		return nil, false
	}
	return buf, true
}

func writeWAV(path string, buf *audio.Buffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return audio.EncodeWAV(f, buf)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Success: false, Message: message})
}
