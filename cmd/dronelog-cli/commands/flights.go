package commands

import (
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	flightsRange     int
	historyDays      int
	historyMaxPages  int
	statisticsPeriod int
	parseRange       int
)

func init() {
	flightsCmd.Flags().IntVar(&flightsRange, "range", 0, "Dashboard range in days (0, 7, 30 or 90).")
	historyCmd.Flags().IntVar(&historyDays, "days", 30, "How many days back to read, 0 reads everything.")
	historyCmd.Flags().IntVar(&historyMaxPages, "max-pages", 0, "Page limit, 0 uses the default.")
	statisticsCmd.Flags().IntVar(&statisticsPeriod, "days", 7, "Statistics period in days.")
	parseCmd.Flags().IntVar(&parseRange, "range", 0, "Range the page was filtered to.")

	rootCmd.AddCommand(flightsCmd, historyCmd, statisticsCmd, parseCmd)
}

func printFlights(flights []parse.FlightRecord) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Date", "Aircraft", "Duration", "Location", "Pilot", "Purpose"})
	for _, f := range flights {
		date := f.Date
		if f.DateEstimated {
			date += " (est.)"
		}
		t.AppendRow(table.Row{f.ID, date, f.Aircraft, f.Duration, f.Location, f.Pilot, f.Purpose})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(flights)})
	t.Render()
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

var flightsCmd = &cobra.Command{
	Use:   "flights [--range <days>]",
	Short: "Prints the flights and statistics shown on the dashboard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parse.ParseRange(flightsRange)
		if err != nil {
			return err
		}
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}

		result, err := client.Flights(cmd.Context(), r)
		if err != nil {
			return err
		}
		printFlights(result.Flights)
		fmt.Println(result.Message, "- total", result.Total)
		if result.Stats != nil {
			return printJSON(result.Stats)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [--days <n>] [--max-pages <n>]",
	Short: "Walks the paginated flight list back the given number of days.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}

		result := client.FlightHistory(cmd.Context(), historyDays, historyMaxPages)
		printFlights(result.Flights)

		t := newTable()
		t.AppendHeader(table.Row{"Page", "Path", "Extracted", "Accepted", "In range"})
		for _, page := range result.Pages {
			t.AppendRow(table.Row{page.Page, page.Path, page.Extracted, page.Accepted, page.InRange})
		}
		t.Render()

		fmt.Printf("stopped: %s (convention %s, %d probes)\n", result.StopReason, result.Convention, result.Probes)
		if result.LimitedToFirstPage {
			fmt.Println("the flight list ignored every paging parameter, only the first page was read")
		}
		if len(result.Flights) == 0 {
			return result.Err
		}
		return nil
	},
}

var statisticsCmd = &cobra.Command{
	Use:   "statistics [--days <n>]",
	Short: "Prints the first json statistics endpoint that answers.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := client.Statistics(cmd.Context(), statisticsPeriod)
		if err != nil {
			return err
		}
		fmt.Println("source:", stats.Source)
		return printJSON(stats.Data)
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <file.html> [--range <days>]",
	Short: "Extracts flights and statistics from a saved page without logging in.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parse.ParseRange(parseRange)
		if err != nil {
			return err
		}
		contents, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		parser := parse.NewParser(telemetry.SlogAPI{}, chrono.NewStandardTime(time.UTC), parse.DefaultOptions())
		doc := parser.Document(string(contents), r)
		printFlights(doc.Flights)
		if doc.Stats != nil {
			return printJSON(doc.Stats)
		}
		return nil
	},
}
