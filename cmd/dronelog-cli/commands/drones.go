package commands

import (
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"dronelog-backend/lib/textutil"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	droneID    string
	droneName  string
	dronePages int
)

func init() {
	droneFlightsCmd.Flags().StringVar(&droneID, "id", "", "Id of the drone.")
	droneFlightsCmd.Flags().StringVar(&droneName, "name", "", "Name of the drone, the closest match in the inventory is used.")
	droneFlightsCmd.Flags().IntVar(&dronePages, "max-pages", 0, "Page limit, 0 uses the default.")
	droneFlightsCmd.MarkFlagsOneRequired("id", "name")
	droneFlightsCmd.MarkFlagsMutuallyExclusive("id", "name")

	rootCmd.AddCommand(dronesCmd, droneFlightsCmd)
}

var dronesCmd = &cobra.Command{
	Use:   "drones",
	Short: "Prints the drones in the inventory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}
		drones, err := client.DroneInventory(cmd.Context())
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, d := range drones {
			t.AppendRow(table.Row{d.ID, d.Name})
		}
		t.Render()
		return nil
	},
}

// findDrone resolves a drone name typed by the user to an inventory entry.
func findDrone(drones []parse.Drone, name string) (parse.Drone, float64, error) {
	names := make([]string, len(drones))
	for i, d := range drones {
		names[i] = d.Name
	}
	i, similarity := textutil.BestMatch(name, names)
	if i < 0 {
		return parse.Drone{}, 0, errors.New("the inventory is empty")
	}
	return drones[i], similarity, nil
}

var droneFlightsCmd = &cobra.Command{
	Use:   "drone-flights (--id <id> | --name <name>)",
	Short: "Prints every flight of one drone.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := login(cmd.Context())
		if err != nil {
			return err
		}

		id := droneID
		if id == "" {
			drones, err := client.DroneInventory(cmd.Context())
			if err != nil {
				return err
			}
			drone, similarity, err := findDrone(drones, droneName)
			if err != nil {
				return err
			}
			fmt.Printf("using %q (%s), similarity %.2f\n", drone.Name, drone.ID, similarity)
			id = drone.ID
		}

		t := newTable()
		t.AppendHeader(table.Row{"Page", "ID", "Name", "Date", "Time", "Duration", "Pilot"})
		err = client.StreamDroneFlights(cmd.Context(), id, dronePages, func(event dronelogbook.DroneFlightsEvent) error {
			if event.Done {
				t.AppendFooter(table.Row{"", "", "", "", "", "Pages", event.TotalPages})
				return nil
			}
			for _, f := range event.Flights {
				t.AppendRow(table.Row{event.Page, f.ID, f.Name, f.Date, f.Time, f.Duration, f.Pilot})
			}
			return nil
		})
		t.Render()
		return err
	},
}
