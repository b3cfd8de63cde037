package main

import (
	"fmt"
	"os"

	"github.com/bdobrica/Kotoba/common/environment"
	"github.com/bdobrica/Kotoba/common/version"
	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/matrix"
)

func main() {
	fmt.Printf("Kotoba command bot %s\n\n", version.Info())

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bot, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer bot.Stop()

	if err := bot.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running bot: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}

	return &app.Config{
		Engine: app.EngineConfig{
			PackPaths:        environment.StringSliceOr("KOTOBA_PACKS", nil),
			WordListPath:     environment.StringOr("KOTOBA_WORD_LIST", ""),
			MisspellingsPath: environment.StringOr("KOTOBA_MISSPELLINGS", ""),
			DisableSpelling:  environment.BoolOr("KOTOBA_DISABLE_SPELLING", false),
		},
		DatabasePath: environment.StringOr("DATABASE_PATH", "./kotoba.db"),
		Matrix: matrix.Config{
			Homeserver:  homeserver,
			UserID:      userID,
			AccessToken: accessToken,
			Rooms:       environment.StringSliceOr("MATRIX_ROOMS", nil),
		},
	}, nil
}
