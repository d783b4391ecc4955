// Package logging wires structured logging (spec §1 names "logging
// setup" as an out-of-scope CLI concern, but the ambient logging
// discipline itself is carried regardless per the standing rule that
// ambient concerns are never dropped by a Non-goal). Grounded on
// evalgo-org-eve's direct sirupsen/logrus dependency — the teacher itself
// has no logging library, since it's a CLI printing colorized status
// lines rather than a long-running daemon.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the base logger: JSON output, so log lines are consumable
// by the out-of-scope ingestion pipeline without a text parser.
func New() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	return log
}

// Tick returns a per-sync-tick entry carrying entity_id, source_system and
// adapter fields. The consumer in pkg/engine logs through its own
// *logrus.Logger and does not call Tick.
func Tick(log *logrus.Logger, entityID, sourceSystem, adapterName string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"entity_id":     entityID,
		"source_system": sourceSystem,
		"adapter":       adapterName,
	})
}
