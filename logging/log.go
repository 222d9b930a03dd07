package logging

import (
	log "github.com/sirupsen/logrus"
	"github.com/yukitsune/lokirus"
)

// Initialize configures the standard logrus logger from cfg. It is safe
// to call more than once; each call sets the formatter, removes every
// hook installed on the standard logger and adds a Loki hook when an
// address is given. An unparseable level leaves the current level as is.
func Initialize(cfg Config) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	}

	switch cfg.Formatter {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	if cfg.Loki.Address == "" {
		return
	}

	opts := lokirus.NewLokiHookOptions().
		WithLevelMap(lokirus.LevelMap{
			log.PanicLevel: "critical",
			log.FatalLevel: "critical",
			log.ErrorLevel: "error",
			log.WarnLevel:  "warning",
			log.InfoLevel:  "info",
			log.DebugLevel: "debug",
			log.TraceLevel: "trace",
		}).
		WithStaticLabels(lokirus.Labels(cfg.Loki.Labels))

	hook := lokirus.NewLokiHookWithOpts(cfg.Loki.Address, opts, log.AllLevels...)
	log.AddHook(hook)
}
