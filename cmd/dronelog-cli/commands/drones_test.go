package commands

import (
	"dronelog-backend/internal/scrapers/dronelogbook/parse"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindDrone(t *testing.T) {
	drones := []parse.Drone{
		{ID: "a", Name: "DJI Mini 3"},
		{ID: "b", Name: "DJI Mavic 3 Pro"},
	}

	drone, similarity, err := findDrone(drones, "dji mini 3")
	require.NoError(t, err)
	require.Equal(t, "a", drone.ID)
	require.Equal(t, 1.0, similarity)

	_, _, err = findDrone(nil, "anything")
	require.Error(t, err)
}
