package observability

import (
	"github.com/danmuck/resonator/internal/logging"
	"github.com/rs/zerolog"
)

// InitLogger returns the process logger tagged with app. Sink and level come
// from internal/logging.
func InitLogger(app string) zerolog.Logger {
	return logging.Logger().With().Str("app", app).Logger()
}
