// healthgate-portal runs the development portal: a local stand-in for the
// production health portal backend, used to exercise the SDK and CLI end
// to end. Challenges are approved or denied through its /dev endpoints.
package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/liberianpost/healthgate/adapters/events"
	"github.com/liberianpost/healthgate/config"
	"github.com/liberianpost/healthgate/core"
	transport "github.com/liberianpost/healthgate/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Tokens are signed with a fresh key per run; dev portal sessions are
	// not meant to outlive the process.
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	logger := watermill.NewStdLogger(false, false)

	// With redis configured, logout and challenge events reach every
	// portal instance; otherwise they stay in-process.
	var publisher message.Publisher
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse redis URL: %v", err)
		}
		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redis.NewClient(opts)},
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create redis publisher: %v", err)
		}
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, logger)
	}

	eventPub := events.NewWatermillPublisher(publisher)
	portal := transport.NewPortal(transport.NewTokenizer(signKey), eventPub, transport.DefaultChallengeTTL)
	seedDirectory(portal)

	router := transport.SetupRouter(portal)
	if err := router.Run(cfg.PortalAddr); err != nil {
		log.Fatalf("Failed to start portal: %v", err)
	}
}

// seedDirectory loads demo accounts so the CLI has something to talk to.
func seedDirectory(portal *transport.Portal) {
	portal.AddUser(transport.DirectoryUser{
		Profile: core.Profile{
			UserID:      "demo-1",
			DSSN:        "ABC123DEF456GHI",
			FirstName:   "Miatta",
			LastName:    "Kollie",
			Email:       "miatta.kollie@example.lr",
			Institution: "JFK Medical Center",
			Position:    "Physician",
			Role:        "doctor",
		},
		Password:       "demo-password",
		PushToken:      "demo-device-token",
		IsProfessional: true,
		Approved:       true,
	})
	portal.AddUser(transport.DirectoryUser{
		Profile: core.Profile{
			UserID:    "demo-2",
			DSSN:      "XYZ987WVU654TSR321",
			FirstName: "Joseph",
			LastName:  "Togba",
			Email:     "joseph.togba@example.lr",
		},
		Password:  "demo-password",
		PushToken: "demo-device-token-2",
	})
}
