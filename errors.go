/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/roombox/internal/rooms"
)

const logDate string = `2006-01-02T15:04:05.000-07:00`

func setupLogging(cfg *Config) {
	level := zerolog.InfoLevel
	if cfg.verbose {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: logDate,
	}).Level(level).With().Timestamp().Logger()
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the room-layer taxonomy onto HTTP statuses:
// validation failures block the action with a specific message,
// missing/expired/frozen rooms collapse to 404, and store failures
// stay generic.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case rooms.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, rooms.ErrCompleted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, rooms.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "room not found or expired"})
	default:
		log.Error().Err(err).Msg("SERVE: Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "something went wrong, please try again"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("SERVE: Response encoding failed")
	}
}

// decodeJSON reads a small JSON request body, rejecting unknown fields
// so typos in client payloads surface instead of silently dropping.
func decodeJSON(r *http.Request, into any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return rooms.Invalid("malformed request body")
	}
	return nil
}

const maxBodyBytes = 12 << 20 // headroom over the 10 MB photo cap
