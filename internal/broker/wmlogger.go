// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package broker

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/fieldsense/fieldsense/internal/logging"
)

// wmLogger adapts Watermill's LoggerAdapter onto zerolog so the
// messaging layer logs through the process logger.
type wmLogger struct {
	logger zerolog.Logger
	fields watermill.LogFields
}

// NewWatermillLogger returns a LoggerAdapter backed by the global
// zerolog logger.
func NewWatermillLogger() watermill.LoggerAdapter {
	return &wmLogger{logger: logging.Logger()}
}

func (l *wmLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.event(l.logger.Error().Err(err), fields).Msg(msg)
}

func (l *wmLogger) Info(msg string, fields watermill.LogFields) {
	l.event(l.logger.Info(), fields).Msg(msg)
}

func (l *wmLogger) Debug(msg string, fields watermill.LogFields) {
	l.event(l.logger.Debug(), fields).Msg(msg)
}

func (l *wmLogger) Trace(msg string, fields watermill.LogFields) {
	l.event(l.logger.Trace(), fields).Msg(msg)
}

func (l *wmLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &wmLogger{logger: l.logger, fields: l.fields.Add(fields)}
}

func (l *wmLogger) event(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range l.fields {
		e = e.Interface(k, v)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}
