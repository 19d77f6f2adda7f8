package dronelogbook

import (
	"dronelog-backend/internal/scrapers/dronelogbook/paginate"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"time"
)

// Paths are relative to Config.BaseURL.
type Paths struct {
	Home         string `json:"home"`
	Login        string `json:"login"`
	Logout       string `json:"logout"`
	Dashboard    string `json:"dashboard"`
	FlightList   string `json:"flight_list"`
	FlightDetail string `json:"flight_detail"`
	Inventory    string `json:"inventory"`
	DroneDetail  string `json:"drone_detail"`
}

type Config struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	// Timeout applies to every single request.
	Timeout           time.Duration `json:"-"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	// CloudflareBypass swaps in a transport with a browser-like tls
	// fingerprint.
	CloudflareBypass bool  `json:"cloudflare_bypass"`
	Paths            Paths `json:"paths"`
	// StatisticsEndpoints are probed in order by Statistics.
	StatisticsEndpoints []string `json:"statistics_endpoints"`
	// DroneFlightPages bounds StreamDroneFlights.
	DroneFlightPages int `json:"drone_flight_pages"`

	Pagination paginate.Options `json:"-"`
	Parse      parse.Options    `json:"-"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://www.dronelogbook.com",
		UserAgent:         defaultUserAgent,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 2,
		CloudflareBypass:  true,
		Paths: Paths{
			Home:         "/",
			Login:        "/profile/login.php",
			Logout:       "/profile/logout.php",
			Dashboard:    "/dashboard.php",
			FlightList:   "/flight/flightList.php",
			FlightDetail: "/flight/flightDetail.php",
			Inventory:    "/inventory/droneList.php",
			DroneDetail:  "/inventory/droneDetail.php",
		},
		StatisticsEndpoints: []string{
			"/api/statistics",
			"/api/stats",
			"/api/dashboard/summary",
			"/dashboard/statsAjax.php",
			"/dashboard/stats.php",
			"/statistics.php",
			"/stats.php",
			"/api/summary",
			"/flight/statistics.php",
			"/flight/stats.php",
			"/dashboardAjax.php?action=getStats",
			"/dashboardAjax.php?action=getSummary",
		},
		DroneFlightPages: 100,
		Pagination:       paginate.DefaultOptions(),
		Parse:            parse.DefaultOptions(),
	}
}

// withDefaults fills every zero field of c from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = d.RequestsPerSecond
	}
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Paths.Home, d.Paths.Home)
	fill(&c.Paths.Login, d.Paths.Login)
	fill(&c.Paths.Logout, d.Paths.Logout)
	fill(&c.Paths.Dashboard, d.Paths.Dashboard)
	fill(&c.Paths.FlightList, d.Paths.FlightList)
	fill(&c.Paths.FlightDetail, d.Paths.FlightDetail)
	fill(&c.Paths.Inventory, d.Paths.Inventory)
	fill(&c.Paths.DroneDetail, d.Paths.DroneDetail)
	if c.StatisticsEndpoints == nil {
		c.StatisticsEndpoints = d.StatisticsEndpoints
	}
	if c.DroneFlightPages <= 0 {
		c.DroneFlightPages = d.DroneFlightPages
	}
	return c
}
