package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/cloudonix/voiceai-connect/internal/platform/config"
	"github.com/cloudonix/voiceai-connect/internal/platform/logger"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/app"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/provider"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/repository/configfile"
)

func main() {
	// .env is optional; real settings come from the environment.
	_ = godotenv.Load()

	settings, err := config.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(settings.LogLevel)

	store := configfile.NewStore(settings.ConfigPath, appLogger)
	httpClient := &http.Client{Timeout: settings.HTTPTimeout()}
	clients := provider.NewHTTPFactory(appLogger, provider.Defaults{
		VapiAPIURL:       settings.VapiAPIURL,
		RetellAPIURL:     settings.RetellAPIURL,
		ElevenLabsAPIURL: settings.ElevenLabsAPIURL,
	}, httpClient)
	cloudonix := func(apiKey string) app.CloudonixGetter {
		return provider.NewCloudonixClient(appLogger, settings.CloudonixAPIURL, apiKey, httpClient)
	}

	c := &cli{
		store:     store,
		sync:      app.NewSyncAppService(store, clients, appLogger),
		provision: app.NewProvisionAppService(store, clients, cloudonix, appLogger),
		display:   app.NewDisplayAppService(store, clients, appLogger),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		stdin:     os.Stdin,
	}
	os.Exit(c.run(os.Args[1:]))
}
