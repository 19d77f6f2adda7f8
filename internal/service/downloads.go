package service

import (
	"context"
	"dronelog-backend/internal/archive"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const bundleFileName = "flight-logs.zip"

type bulkRequest struct {
	FlightIDs []string `json:"flightIds"`
}

// bulkDownload downloads the logs of many flights, reporting progress as
// server-sent events. The complete event carries the token the zip can be
// fetched with.
func (s *Service) bulkDownload(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ids := make([]string, 0, len(req.FlightIDs))
	for _, id := range req.FlightIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		writeMessage(w, http.StatusBadRequest, "flightIds must not be empty")
		return
	}

	stream, ok := newEventStream(w)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.BulkTimeout)
	defer cancel()

	downloader := dronelogbook.NewDownloader(sessionFrom(r.Context()).client, s.resolver, s.bundles, s.cfg.DownloadDelay)
	err = downloader.Bulk(ctx, ids, func(event dronelogbook.DownloadEvent) error {
		return stream.send(event)
	})
	if err != nil && r.Context().Err() == nil {
		s.tel.ReportWarning(report_service_downloads, err, len(ids))
		_ = stream.send(streamError{Error: err.Error()})
	}
}

// downloadBundle sends a finished bundle as a zip, a token works once.
func (s *Service) downloadBundle(w http.ResponseWriter, r *http.Request) {
	files, err := s.bundles.Take(chi.URLParam(r, "token"))
	if err != nil {
		s.writeError(w, report_service_downloads, err, "")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+bundleFileName+`"`)
	w.WriteHeader(http.StatusOK)
	err = archive.WriteZip(w, files)
	if err != nil {
		s.tel.ReportBroken(report_service_downloads, err, len(files))
	}
}
