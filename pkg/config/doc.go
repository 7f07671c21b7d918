// Package config loads the plugin host's configuration from PLUGHOST_*
// environment variables.
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// PLUGHOST_ADDR is the only required variable. Every other setting has a
// default; a value that is set but cannot be parsed fails startup.
package config
