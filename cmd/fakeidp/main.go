// Command fakeidp runs the in-process identity provider on its own port so the
// console can be exercised locally without a hosted tenant.
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/fakeidp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	port := config.GetEnv("FAKEIDP_PORT", "9000")
	issuer := config.GetEnv("FAKEIDP_ISSUER", "http://localhost:"+port+"/")

	provider, err := fakeidp.New(
		config.GetEnv("AUTH_CLIENT_ID", "console-client"),
		fakeidp.WithUser(fakeidp.User{
			Username: config.GetEnv("FAKEIDP_USERNAME", "demo@example.com"),
			Password: config.GetEnv("FAKEIDP_PASSWORD", "demo-password"),
			Subject:  "fakeidp|demo",
			Name:     "Demo User",
			Email:    config.GetEnv("FAKEIDP_USERNAME", "demo@example.com"),
			Nickname: "demo",
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create provider")
	}
	provider.SetIssuer(issuer)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           provider.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", server.Addr).Str("issuer", issuer).Msg("Fake identity provider listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Provider stopped")
	}
}
