package loggers

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-relay/pkg/repo"
)

const (
	App            = "app"
	Relay          = "relay"
	Account        = "account"
	Sponsor        = "sponsor"
	Stake          = "stake"
	Storage        = "storage"
	API            = "api"
	SystemContract = "system_contract"
)

var w = &LoggerWrapper{
	loggers: map[string]*logrus.Entry{
		App:            newWithModule(logrus.StandardLogger(), App),
		Relay:          newWithModule(logrus.StandardLogger(), Relay),
		Account:        newWithModule(logrus.StandardLogger(), Account),
		Sponsor:        newWithModule(logrus.StandardLogger(), Sponsor),
		Stake:          newWithModule(logrus.StandardLogger(), Stake),
		Storage:        newWithModule(logrus.StandardLogger(), Storage),
		API:            newWithModule(logrus.StandardLogger(), API),
		SystemContract: newWithModule(logrus.StandardLogger(), SystemContract),
	},
}

type LoggerWrapper struct {
	loggers map[string]*logrus.Entry
}

func newWithModule(base *logrus.Logger, module string) *logrus.Entry {
	return base.WithField("module", module)
}

// newModuleLogger returns a logger that shares output and format with base but owns its level
func newModuleLogger(base *logrus.Logger, module string, level string) (*logrus.Entry, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level of module %s", module)
	}
	l := logrus.New()
	l.SetOutput(base.Out)
	l.SetFormatter(base.Formatter)
	l.SetReportCaller(base.ReportCaller)
	l.SetLevel(lvl)
	return newWithModule(l, module), nil
}

func InitializeEthLog(logger *logrus.Entry) {
	log.SetDefault(log.NewLogger(&LogrusHandler{
		Logger: logger,
		Level:  levelMapReverse[logger.Logger.Level],
	}))
}

// Initialize replaces module loggers by the ones configured in repo, persist tees the output into the repo logs dir
func Initialize(rep *repo.Repo, persist bool) error {
	config := rep.Config.Log

	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{
		ForceColors:      config.EnableColor,
		DisableColors:    !config.EnableColor,
		DisableTimestamp: config.DisableTimestamp,
		FullTimestamp:    true,
		TimestampFormat:  "2006-01-02T15:04:05.000",
	})
	base.SetReportCaller(config.ReportCaller)
	if persist {
		logDir := filepath.Join(rep.RepoRoot, repo.LogsDirName)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return errors.Wrap(err, "create logs dir failed")
		}
		f, err := os.OpenFile(filepath.Join(logDir, config.Filename+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, "open log file failed")
		}
		base.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		base.SetOutput(os.Stdout)
	}

	levels := map[string]string{
		App:            config.Level,
		Relay:          config.Module.Relay,
		Account:        config.Module.Account,
		Sponsor:        config.Module.Sponsor,
		Stake:          config.Module.Stake,
		Storage:        config.Module.Storage,
		API:            config.Module.API,
		SystemContract: config.Module.SystemContract,
	}
	m := make(map[string]*logrus.Entry, len(levels))
	for module, level := range levels {
		if level == "" {
			level = config.Level
		}
		entry, err := newModuleLogger(base, module, level)
		if err != nil {
			return err
		}
		m[module] = entry
	}

	w = &LoggerWrapper{loggers: m}
	InitializeEthLog(m[API])
	return nil
}

func Logger(name string) logrus.FieldLogger {
	return w.loggers[name]
}
