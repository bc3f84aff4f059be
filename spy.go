// Roombox spy game
//
// An anonymous host opens a lobby; players join by code under unique
// names. Starting a round deals exactly k spy roles at random and
// fixes the two keywords; eliminations are recorded in order. Ending
// freezes the room, and an explicit restart resets roles, statuses,
// and settings in place for another round on the same code.

package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/roombox/internal/spy"
)

func registerSpy(cfg *Config, svcs *services, mux *httprouter.Router) {
	svc := svcs.spy

	mux.POST(cfg.prefix+"/spy", createSpyRoom(cfg, svc))
	mux.GET(cfg.prefix+"/spy/join/:code", joinSpyRoom(cfg, svc))
	mux.GET(cfg.prefix+"/spy/join/:code/qr", serveJoinQR(cfg))
	mux.GET(cfg.prefix+"/spy/rooms/:id", getSpyRoom(cfg, svc))
	mux.GET(cfg.prefix+"/spy/rooms/:id/ws", watchSpyRoom(cfg, svcs))
	mux.POST(cfg.prefix+"/spy/rooms/:id/players", addSpyPlayer(cfg, svc))
	mux.DELETE(cfg.prefix+"/spy/rooms/:id/players/:playerId", removeSpyPlayer(cfg, svc))
	mux.POST(cfg.prefix+"/spy/rooms/:id/start", startSpyGame(cfg, svc))
	mux.POST(cfg.prefix+"/spy/rooms/:id/eliminate", eliminateSpyPlayer(cfg, svc))
	mux.POST(cfg.prefix+"/spy/rooms/:id/end", endSpyGame(cfg, svc))
	mux.POST(cfg.prefix+"/spy/rooms/:id/restart", restartSpyGame(cfg, svc))
}

func createSpyRoom(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, err := svc.Create(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusCreated, map[string]string{
			"roomId":   room.ID,
			"roomCode": room.Code,
			"hostId":   room.HostID,
		})
	}
}

func joinSpyRoom(cfg *Config, svc *spy.Service) httprouter.Handle {
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

func getSpyRoom(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, err := svc.Get(r.Context(), ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, room)
	}
}

func watchSpyRoom(cfg *Config, svcs *services) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		updates, cancel := svcs.spy.Subscribe(r.Context(), ps.ByName("id"))

		conn, ok := upgrade(w, r)
		if !ok {
			cancel()
			return
		}

		// No staged reveal for spy rooms; the final state itself is
		// the payoff.
		pumpRoom(r.Context(), conn, roomStream{
			updates: marshalStream(updates),
			cancel:  cancel,
		})
	}
}

func addSpyPlayer(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		player, err := svc.AddPlayer(r.Context(), ps.ByName("id"), body.Name)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusCreated, player)
	}
}

func removeSpyPlayer(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := svc.RemovePlayer(r.Context(), ps.ByName("id"), ps.ByName("playerId")); err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func startSpyGame(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			SpyCount        int    `json:"spyCount"`
			CivilianKeyword string `json:"civilianKeyword"`
			SpyKeyword      string `json:"spyKeyword"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		err := svc.Start(r.Context(), ps.ByName("id"), body.SpyCount, body.CivilianKeyword, body.SpyKeyword)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func eliminateSpyPlayer(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			PlayerID string `json:"playerId"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		if err := svc.Eliminate(r.Context(), ps.ByName("id"), body.PlayerID); err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func endSpyGame(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := svc.End(r.Context(), ps.ByName("id")); err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func restartSpyGame(cfg *Config, svc *spy.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := svc.Restart(r.Context(), ps.ByName("id")); err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}
