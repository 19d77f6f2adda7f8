package service

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"net/http"
)

// droneInventory answers with the inventory page as is, the frontend reads
// the drones out of it itself.
func (s *Service) droneInventory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	document, err := sessionFrom(r.Context()).client.InventoryHTML(ctx)
	if err != nil {
		s.writeError(w, report_service_drones, err, "No drones found")
		return
	}
	writeHTML(w, document)
}

type dronesResponse struct {
	Success bool          `json:"success"`
	Drones  []parse.Drone `json:"drones"`
}

func (s *Service) drones(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	drones, err := sessionFrom(r.Context()).client.DroneInventory(ctx)
	if err != nil {
		s.writeError(w, report_service_drones, err, "No drones found")
		return
	}
	if drones == nil {
		drones = []parse.Drone{}
	}
	writeJSON(w, http.StatusOK, dronesResponse{Success: true, Drones: drones})
}

func (s *Service) droneDetailPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	droneID := query.Get("droneId")
	if droneID == "" {
		writeMessage(w, http.StatusBadRequest, "droneId is required")
		return
	}
	page, ok := intParam(query.Get("pageNumber"), 1)
	if !ok || page < 1 {
		writeMessage(w, http.StatusBadRequest, "pageNumber must be a positive number")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	document, _, err := sessionFrom(r.Context()).client.DroneFlightPage(ctx, droneID, page)
	if err != nil {
		s.writeError(w, report_service_drones, err, "No flights found")
		return
	}
	writeHTML(w, document)
}

// allDroneFlights streams every page of a drone's flights as server-sent
// events, failures after the stream started are sent as an error event.
func (s *Service) allDroneFlights(w http.ResponseWriter, r *http.Request) {
	droneID := r.URL.Query().Get("id")
	if droneID == "" {
		writeMessage(w, http.StatusBadRequest, "id is required")
		return
	}
	stream, ok := newEventStream(w)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RunTimeout)
	defer cancel()

	err := sessionFrom(r.Context()).client.StreamDroneFlights(ctx, droneID, 0, func(event dronelogbook.DroneFlightsEvent) error {
		return stream.send(event)
	})
	if err != nil && r.Context().Err() == nil {
		s.tel.ReportWarning(report_service_stream, err, droneID)
		_ = stream.send(streamError{Error: err.Error()})
	}
}
