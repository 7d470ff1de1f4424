package logging

import "github.com/rs/zerolog"

func Tracef(format string, args ...any) { emit(zerolog.TraceLevel, format, args...) }
func Debugf(format string, args ...any) { emit(zerolog.DebugLevel, format, args...) }
func Infof(format string, args ...any)  { emit(zerolog.InfoLevel, format, args...) }
func Warnf(format string, args ...any)  { emit(zerolog.WarnLevel, format, args...) }
func Errorf(format string, args ...any) { emit(zerolog.ErrorLevel, format, args...) }

func emit(level zerolog.Level, format string, args ...any) {
	l := Logger()
	l.WithLevel(level).Msgf(format, args...)
}
