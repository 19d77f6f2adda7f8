package dronelogbook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func droneFlightCard(id, date string) string {
	return fmt.Sprintf(`<div class="flight-card">
		<div class="flight-title">Flight %s 10:00:00 00:05:00</div>
		<div class="flight-meta">Pilot: Flight Dev</div>
		<a href="/flight/flightDetail.php?id=%s">View</a>
	</div>`, date, id)
}

func droneDetailPage(next bool, cards ...string) string {
	body := "<html><body><div>" + strings.Join(cards, "\n") + "</div>"
	if next {
		body += `<a href="javascript:flightPagination(2)">2</a>`
	}
	return body + "</body></html>"
}

func TestStreamDroneFlights(t *testing.T) {
	testCases := []struct {
		name     string
		pages    map[string]string
		maxPages int
		expected []int
	}{
		{
			name: "stops without next page",
			pages: map[string]string{
				"1": droneDetailPage(true, droneFlightCard("AAAA0001", "2025-10-24"), droneFlightCard("AAAA0002", "2025-10-23")),
				"2": droneDetailPage(false, droneFlightCard("AAAA0003", "2025-10-20")),
				"3": droneDetailPage(false, droneFlightCard("AAAA0004", "2025-10-19")),
			},
			expected: []int{1, 2},
		},
		{
			name: "stops on a repeated page",
			pages: map[string]string{
				"1": droneDetailPage(true, droneFlightCard("AAAA0001", "2025-10-24")),
				"2": droneDetailPage(true, droneFlightCard("AAAA0001", "2025-10-24")),
			},
			expected: []int{1},
		},
		{
			name: "stops on an empty page",
			pages: map[string]string{
				"1": droneDetailPage(true, droneFlightCard("AAAA0001", "2025-10-24")),
				"2": droneDetailPage(true),
			},
			expected: []int{1},
		},
		{
			name: "ceiling",
			pages: map[string]string{
				"1": droneDetailPage(true, droneFlightCard("AAAA0001", "2025-10-24")),
				"2": droneDetailPage(true, droneFlightCard("AAAA0002", "2025-10-23")),
				"3": droneDetailPage(true, droneFlightCard("AAAA0003", "2025-10-22")),
			},
			maxPages: 2,
			expected: []int{1, 2},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			u := newUpstream(t)
			u.handle("/inventory/droneDetail.php", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("id") != "DRONE-1" {
					http.NotFound(w, r)
					return
				}
				w.Write([]byte(test.pages[r.URL.Query().Get("pageNumber")]))
			})

			var events []DroneFlightsEvent
			err := newTestClient(t, u).StreamDroneFlights(context.Background(), "DRONE-1", test.maxPages, func(e DroneFlightsEvent) error {
				events = append(events, e)
				return nil
			})
			require.NoError(t, err)

			var pages []int
			for _, e := range events[:len(events)-1] {
				require.NotEmpty(t, e.HTML)
				require.NotEmpty(t, e.Flights)
				pages = append(pages, e.Page)
			}
			require.Equal(t, test.expected, pages)
			require.Equal(t, DroneFlightsEvent{Done: true, TotalPages: len(test.expected)}, events[len(events)-1])
		})
	}
}

func TestStreamDroneFlightsStopsOnEmitError(t *testing.T) {
	u := newUpstream(t)
	u.html("/inventory/droneDetail.php", droneDetailPage(true, droneFlightCard("AAAA0001", "2025-10-24")))

	closed := errors.New("client went away")
	calls := 0
	err := newTestClient(t, u).StreamDroneFlights(context.Background(), "DRONE-1", 0, func(DroneFlightsEvent) error {
		calls++
		return closed
	})
	require.ErrorIs(t, err, closed)
	require.Equal(t, 1, calls)
}

func TestDroneFlightPage(t *testing.T) {
	u := newUpstream(t)
	u.handle("/inventory/droneDetail.php", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(droneDetailPage(false, droneFlightCard("AAAA0001", "2025-10-24"))))
	})

	html, page, err := newTestClient(t, u).DroneFlightPage(context.Background(), "DRONE-1", 0)
	require.NoError(t, err)
	require.Contains(t, html, "flight-card")
	require.False(t, page.HasNextPage)
	require.Len(t, page.Flights, 1)
	require.Equal(t, "Flight 2025-10-24 10:00:00", page.Flights[0].Name)
	require.Equal(t, u.URL+"/flight/flightDetail.php?id=AAAA0001", page.Flights[0].URL)
	require.Equal(t, []string{"GET /inventory/droneDetail.php?id=DRONE-1&pageNumber=1"}, u.recorded())
}
