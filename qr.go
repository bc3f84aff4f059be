package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// joinLink rebuilds the externally visible join URL for a request to
// its /qr sub-path. The forwarded scheme is only honored when it is a
// real one; anything else from the proxy header is ignored.
func joinLink(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")
}

// serveJoinQR renders a QR code for the join link of :code, so hosts
// can put the room on a shared screen instead of dictating the code.
func serveJoinQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		started := time.Now()

		code := ps.ByName("code")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		url := joinLink(r)

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		securityHeaders(cfg, w)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)

		log.Debug().
			Str("size", humanReadableSize(int64(len(png)))).
			Str("client", realIP(r)).
			Dur("elapsed", time.Since(started).Round(time.Microsecond)).
			Msg("SERVE: Join QR code")
	}
}
