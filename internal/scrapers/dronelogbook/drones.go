package dronelogbook

import (
	"context"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"fmt"
	"net/url"
	"strconv"
)

const (
	report_client_drone_inventory     = "client.drone-inventory"
	report_client_drone_flight_page   = "client.drone-flight-page"
	report_client_stream_drone_flight = "client.stream-drone-flights"
)

// InventoryHTML returns the raw drone inventory page.
func (c *Client) InventoryHTML(ctx context.Context) (string, error) {
	body, err := c.FetchPage(ctx, c.cfg.Paths.Inventory)
	if err != nil {
		return "", err
	}
	return body, nil
}

// DroneInventory lists the drones linked from the inventory page.
func (c *Client) DroneInventory(ctx context.Context) ([]parse.Drone, error) {
	body, err := c.InventoryHTML(ctx)
	if err != nil {
		return nil, err
	}
	drones := parse.Drones(ctx, body)
	for i := range drones {
		drones[i].URL = c.AbsoluteURL(drones[i].URL)
	}
	c.tel.ReportCount(report_client_drone_inventory, int64(len(drones)))
	return drones, nil
}

func (c *Client) droneDetailPath(droneID string, page int) string {
	query := url.Values{}
	query.Set("id", droneID)
	query.Set("pageNumber", strconv.Itoa(page))
	return c.cfg.Paths.DroneDetail + "?" + query.Encode()
}

// DroneFlightPage fetches one page of a drone's flight list, the raw html
// is returned next to what could be parsed from it.
func (c *Client) DroneFlightPage(ctx context.Context, droneID string, page int) (string, parse.DroneFlightPage, error) {
	if page < 1 {
		page = 1
	}
	body, err := c.FetchPage(ctx, c.droneDetailPath(droneID, page))
	if err != nil {
		return "", parse.DroneFlightPage{}, err
	}
	parsed := parse.DroneFlights(body)
	for i := range parsed.Flights {
		parsed.Flights[i].URL = c.AbsoluteURL(parsed.Flights[i].URL)
	}
	c.tel.ReportDebug(report_client_drone_flight_page, droneID, page, len(parsed.Flights))
	return body, parsed, nil
}

// DroneFlightsEvent is one message of a StreamDroneFlights run, either a
// page or the final done marker.
type DroneFlightsEvent struct {
	Page       int                 `json:"page,omitempty"`
	HTML       string              `json:"html,omitempty"`
	Flights    []parse.DroneFlight `json:"flights,omitempty"`
	Done       bool                `json:"done,omitempty"`
	TotalPages int                 `json:"totalPages,omitempty"`
}

// StreamDroneFlights emits every page of a drone's flight list in order and
// then a done event. It stops at the first page without flights, without a
// next page link or with only flights already seen, and after maxPages
// pages (<= 0 uses the configured limit). An error from emit ends the run.
func (c *Client) StreamDroneFlights(ctx context.Context, droneID string, maxPages int, emit func(DroneFlightsEvent) error) error {
	if maxPages <= 0 {
		maxPages = c.cfg.DroneFlightPages
	}

	seen := map[string]struct{}{}
	pages := 0
	for page := 1; page <= maxPages; page++ {
		body, parsed, err := c.DroneFlightPage(ctx, droneID, page)
		if err != nil {
			c.tel.ReportWarning(report_client_stream_drone_flight, fmt.Errorf("page %d: %w", page, err), droneID)
			return err
		}
		if len(parsed.Flights) == 0 {
			break
		}

		fresh := 0
		for _, flight := range parsed.Flights {
			if _, ok := seen[flight.ID]; ok {
				continue
			}
			seen[flight.ID] = struct{}{}
			fresh++
		}
		if fresh == 0 {
			break
		}

		pages++
		err = emit(DroneFlightsEvent{Page: page, HTML: body, Flights: parsed.Flights})
		if err != nil {
			return err
		}
		if !parsed.HasNextPage {
			break
		}
	}

	return emit(DroneFlightsEvent{Done: true, TotalPages: pages})
}
