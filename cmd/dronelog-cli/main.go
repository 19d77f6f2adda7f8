package main

import (
	"dronelog-backend/cmd/dronelog-cli/commands"
	"dronelog-backend/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
