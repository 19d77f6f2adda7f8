package commands

import (
	"context"
	"dronelog-backend/internal/components/chrono"
	"dronelog-backend/internal/components/telemetry"
	"dronelog-backend/internal/scrapers/dronelogbook"
	"dronelog-backend/lib/configutil"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Config struct {
	Email    string              `json:"email"`
	Password string              `json:"password"`
	Upstream dronelogbook.Config `json:"upstream"`
	// RestyDump is a directory every request/response pair is written to.
	RestyDump string `json:"resty_dump"`
}

type configFile struct {
	CLI Config `json:"cli"`
}

const loginTimeout = 30 * time.Second

func readConfig() (Config, error) {
	file, err := configutil.ReadRecursively("config.json5", configFile{
		CLI: Config{Upstream: dronelogbook.DefaultConfig()},
	})
	if err != nil {
		return Config{}, fmt.Errorf("read config.json5: %w", err)
	}
	if file.CLI.Email == "" || file.CLI.Password == "" {
		return Config{}, fmt.Errorf("cli.email and cli.password must be set in config.json5")
	}
	return file.CLI, nil
}

// login creates a client from the config file and logs it in.
func login(ctx context.Context) (*dronelogbook.Client, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	var dump telemetry.DumpOutput
	if cfg.RestyDump != "" {
		output, err := telemetry.NewFilesystemOutput(cfg.RestyDump)
		if err != nil {
			return nil, err
		}
		dump = output
	}

	client, err := dronelogbook.NewClient(cfg.Upstream, telemetry.SlogAPI{}, chrono.NewStandardTime(time.UTC), dump)
	if err != nil {
		return nil, err
	}

	loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	err = client.Login(loginCtx, cfg.Email, cfg.Password)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
