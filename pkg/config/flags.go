package config

import (
	"github.com/spf13/pflag"
)

// AddFlags registers command-line overrides on fs. The current field
// values become the flag defaults, so call it after Load; flags then win
// over both the file and the environment. Call Validate after parsing.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "control plane base URL")
	fs.StringVar(&c.StreamPath, "stream-path", c.StreamPath, "log stream path on the control plane")
	fs.StringVar(&c.Token, "token", c.Token, "bearer token for the control plane")
	fs.DurationVar(&c.ReconnectDelay, "reconnect-delay", c.ReconnectDelay, "wait between a dropped stream and the next attempt")
	fs.IntVar(&c.MaxEntries, "max-entries", c.MaxEntries, "buffer bound, 0 keeps every entry")
	fs.StringVar(&c.Product, "product", c.Product, "prefix of export file names")
	fs.StringVar(&c.ExportDir, "export-dir", c.ExportDir, "directory exports are written to")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write logs to this file")
}

// AddServerFlags registers the flags only the console server uses.
func (c *Config) AddServerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown deadline")
	fs.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "log as JSON instead of text")
}
