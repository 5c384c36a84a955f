package config

import (
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	PGHubDSN string `envconfig:"PG_HUB_DSN" required:"true"`
	// JWT
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`
	// Network
	HTTPAddr string `envconfig:"HUB_HTTP_ADDR" default:":8080"`

	// RabbitMQ
	RabbitURL         string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange   string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	MessagingExchange string `envconfig:"MESSAGING_EXCHANGE" default:"messaging.exchange"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
