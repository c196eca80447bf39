package main

import (
	"os"

	servecmder "github.com/SaintNick1214/cortex/cmd/cortex/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "cortexapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .cortex directory location")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
