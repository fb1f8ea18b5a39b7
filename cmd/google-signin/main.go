package main

import (
	"fmt"
	"net/http"

	internal "github.com/lanterndev/google-signin/internal"
)

// Main
func main() {
	// Parse options
	config := internal.NewGlobalConfig()

	// Setup logger
	log := internal.NewDefaultLogger()

	// Perform config validation
	config.Validate()

	// Build server
	sessions := internal.NewSessionStore(config.Lifetime)
	server := internal.NewServer(sessions)

	// Start
	log.Debugf("Starting with options: %s", config)
	log.Infof("Listening on :%d", config.Port)
	log.Info(http.ListenAndServe(fmt.Sprintf(":%d", config.Port), server))
}
