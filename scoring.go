// Roombox performance scoring
//
// A host creates a room and shares its 6-character code. The host
// enrolls judges (each receiving a capability token) and performances;
// judges score each performance from 1 to 10, with resubmission
// replacing the earlier value. Completing the room freezes it and
// computes the average-ranked standings, which subscribers receive as
// a staged bottom-to-top reveal.

package main

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/roombox/internal/reveal"
	"github.com/Seednode/roombox/internal/scoring"
)

func registerScoring(cfg *Config, svcs *services, mux *httprouter.Router) {
	svc := svcs.scoring

	mux.POST(cfg.prefix+"/scoring", createScoringRoom(cfg, svc))
	mux.GET(cfg.prefix+"/scoring/join/:code", joinScoringRoom(cfg, svc))
	mux.GET(cfg.prefix+"/scoring/join/:code/qr", serveJoinQR(cfg))
	mux.GET(cfg.prefix+"/scoring/rooms/:id", getScoringRoom(cfg, svc))
	mux.GET(cfg.prefix+"/scoring/rooms/:id/ws", watchScoringRoom(cfg, svcs))
	mux.GET(cfg.prefix+"/scoring/rooms/:id/ranking", getScoringRanking(cfg, svc))
	mux.POST(cfg.prefix+"/scoring/rooms/:id/judges", addJudge(cfg, svc))
	mux.DELETE(cfg.prefix+"/scoring/rooms/:id/judges/:judgeId", removeJudge(cfg, svc))
	mux.POST(cfg.prefix+"/scoring/rooms/:id/performances", addPerformance(cfg, svc))
	mux.POST(cfg.prefix+"/scoring/rooms/:id/scores", submitScore(cfg, svc))
	mux.POST(cfg.prefix+"/scoring/rooms/:id/complete", completeScoringRoom(cfg, svc))
}

func createScoringRoom(cfg *Config, svc *scoring.Service) httprouter.Handle {
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

func joinScoringRoom(cfg *Config, svc *scoring.Service) httprouter.Handle {
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

func getScoringRoom(cfg *Config, svc *scoring.Service) httprouter.Handle {
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

func getScoringRanking(cfg *Config, svc *scoring.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, err := svc.Get(r.Context(), ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, scoring.Ranking(room))
	}
}

func watchScoringRoom(cfg *Config, svcs *services) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		updates, cancel := svcs.scoring.Subscribe(r.Context(), ps.ByName("id"))

		conn, ok := upgrade(w, r)
		if !ok {
			cancel()
			return
		}

		pumpRoom(r.Context(), conn, roomStream{
			updates: marshalStream(updates),
			cancel:  cancel,
			completed: func(raw json.RawMessage) bool {
				var room scoring.Room
				return json.Unmarshal(raw, &room) == nil && room.IsCompleted
			},
			sequencer: func(raw json.RawMessage) *reveal.Sequencer {
				var room scoring.Room
				if err := json.Unmarshal(raw, &room); err != nil {
					return nil
				}
				return reveal.New(svcs.clock, len(scoring.Ranking(room)), reveal.Scoring())
			},
		})
	}
}

func addJudge(cfg *Config, svc *scoring.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		judge, err := svc.AddJudge(r.Context(), ps.ByName("id"), body.Name)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusCreated, judge)
	}
}

func removeJudge(cfg *Config, svc *scoring.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := svc.RemoveJudge(r.Context(), ps.ByName("id"), ps.ByName("judgeId")); err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func addPerformance(cfg *Config, svc *scoring.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		perf, err := svc.AddPerformance(r.Context(), ps.ByName("id"), body.Name)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusCreated, perf)
	}
}

func submitScore(cfg *Config, svc *scoring.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			JudgeID       string `json:"judgeId"`
			PerformanceID string `json:"performanceId"`
			Score         int    `json:"score"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, err)
			return
		}

		err := svc.SubmitScore(r.Context(), ps.ByName("id"), body.JudgeID, body.PerformanceID, body.Score)
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func completeScoringRoom(cfg *Config, svc *scoring.Service) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, ranking, err := svc.Complete(r.Context(), ps.ByName("id"))
		if err != nil {
			writeError(w, err)
			return
		}

		securityHeaders(cfg, w)
		writeJSON(w, http.StatusOK, map[string]any{
			"room":    room,
			"ranking": ranking,
		})
	}
}
