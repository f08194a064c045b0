package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/kirkbardini/foodlogkm-sub000/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   local SQLite database path
//	-r string   remote DSN (postgres://... or memory://)
//	-u string   active account
//	-i int      online check interval in seconds
//	-o int      auto-sync interval in seconds (0 disables)
//	-log string log file; empty logs to stdout
//
// Only these flags are picked out of os.Args with flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-u", "-i", "-o", "-log"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "local database path")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "remote store dsn")
	fs.StringVar(&cfg.UserID, "u", cfg.UserID, "active account")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("o", int(cfg.SyncInterval.Seconds()), "auto-sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.UserID = strings.TrimSpace(cfg.UserID)
}
