// Roombox dress-code voting
//
// Participants submit one photo entry per device (resubmission
// overwrites), then vote for up to three other entries exactly once.
// Completing the room freezes it and tallies the votes; subscribers
// get a staged top-3 reveal. The device id is issued by POST /identity
// and passed explicitly on every call.

package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/roombox/internal/dresscode"
	"github.com/Seednode/roombox/internal/reveal"
)

func registerDressCode(cfg *Config, svcs *services, mux *httprouter.Router) {
	svc := svcs.dresscode

	mux.POST(cfg.prefix+"/dresscode", createDressCodeRoom(cfg, svc))
	mux.GET(cfg.prefix+"/dresscode/join/:code", joinDressCodeRoom(cfg, svc))
	mux.GET(cfg.prefix+"/dresscode/join/:code/qr", serveJoinQR(cfg))
	mux.GET(cfg.prefix+"/dresscode/rooms/:code", getDressCodeRoom(cfg, svc))
	mux.GET(cfg.prefix+"/dresscode/rooms/:code/ws", watchDressCodeRoom(cfg, svcs))
	mux.GET(cfg.prefix+"/dresscode/rooms/:code/status", getDressCodeStatus(cfg, svc))
	mux.POST(cfg.prefix+"/dresscode/rooms/:code/submissions", submitDressCodeEntry(cfg, svc))
	mux.POST(cfg.prefix+"/dresscode/rooms/:code/votes", submitDressCodeVotes(cfg, svc))
	mux.POST(cfg.prefix+"/dresscode/rooms/:code/complete", completeDressCodeRoom(cfg, svc))
}

func createDressCodeRoom(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			HostName string `json:"hostName"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		room, err := svc.Create(r.Context(), body.HostName)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusCreated, map[string]string{
			"roomId":   room.ID,
			"roomCode": room.Code,
		})
	}
}

func joinDressCodeRoom(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := svc.JoinByCode(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, map[string]string{"roomId": id})
	}
}

func getDressCodeRoom(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, err := svc.GetByCode(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, room)
	}
}

func getDressCodeStatus(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, err := svc.GetByCode(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, dresscode.Status(room, r.URL.Query().Get("deviceId")))
	}
}

func watchDressCodeRoom(cfg *Config, svcs *services) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		updates, cancel, err := svcs.dresscode.Subscribe(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)
			return
		}

		conn, ok := upgrade(w, r)
		if !ok {
			cancel()
			return
		}

		pumpRoom(r.Context(), conn, roomStream{
			updates: marshalStream(updates),
			cancel:  cancel,
			completed: func(raw json.RawMessage) bool {
				var room dresscode.Room
				return json.Unmarshal(raw, &room) == nil && room.IsCompleted
			},
			sequencer: func(raw json.RawMessage) *reveal.Sequencer {
				var room dresscode.Room
				if err := json.Unmarshal(raw, &room); err != nil {
					return nil
				}
				return reveal.New(svcs.clock, len(dresscode.Tally(room)), reveal.DressCode())
			},
		})
	}
}

func submitDressCodeEntry(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			DeviceID string `json:"deviceId"`
			Name     string `json:"name"`
			PhotoURL string `json:"photoURL"`
			Message  string `json:"message"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		err := svc.SubmitEntry(r.Context(), ps.ByName("code"), body.DeviceID, body.Name, body.PhotoURL, body.Message)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func submitDressCodeVotes(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			DeviceID string   `json:"deviceId"`
			VotedFor []string `json:"votedFor"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		err := svc.SubmitVotes(r.Context(), ps.ByName("code"), body.DeviceID, body.VotedFor)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func completeDressCodeRoom(cfg *Config, svc *dresscode.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		results, err := svc.Complete(r.Context(), ps.ByName("code"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}
