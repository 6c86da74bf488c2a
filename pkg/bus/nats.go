package bus

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Connect creates a NATS connection for fleet event publication. The
// connection keeps retrying in the background when the server is not up yet.
func Connect(url, name string, logger zerolog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
}
