package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/nocheto/libretas/apps/api/echo"
	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/report"
	"github.com/nocheto/libretas/core/rubric"
	"github.com/nocheto/libretas/core/school"
	emailsvc "github.com/nocheto/libretas/services/email"
	logsvc "github.com/nocheto/libretas/services/logger"
	"github.com/nocheto/libretas/storage/database"
	inmemdb "github.com/nocheto/libretas/storage/database/inmem"
	sqlxrepos "github.com/nocheto/libretas/storage/database/sqlx"
	"github.com/nocheto/libretas/storage/directory"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// CloseFunc releases the storage backend.
type CloseFunc func() error

type Repositories struct {
	dig.Out
	Consolidation consolidation.Repository
	Grade         grade.Repository
	Sheet         rubric.Repository
	Close         CloseFunc
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Dir           school.Directory
	Consolidation *consolidation.Service
	Grade         *grade.Service
	Rubric        *rubric.Service
	Report        *report.Service
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newStdLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(newStdLogger("API : "), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(newStdLogger("DB : "), conf)
}

func newDirectory(conf *core.Config) (school.Directory, error) {
	dir, err := directory.Load(conf.DirectoryFile)
	if err != nil {
		return nil, errors.Wrap(err, "loading school directory")
	}
	return dir, nil
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) (Repositories, error) {
	switch conf.Storage {
	case StorageMemory:
		loggerParam.Logger.Warn("using in-memory storage: records are lost on shutdown")
		db := inmemdb.Open()
		return Repositories{
			Consolidation: inmemdb.NewConsolidationRepository(db),
			Grade:         inmemdb.NewGradeRepository(db),
			Sheet:         inmemdb.NewSheetRepository(db),
			Close:         func() error { return nil },
		}, nil

	case StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return Repositories{}, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return Repositories{}, err
		}
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return Repositories{}, errors.Wrap(err, "migrating database")
		}
		loggerParam.Logger.Info(fmt.Sprintf("connected to database %q", conf.Database.Name))
		return Repositories{
			Consolidation: sqlxrepos.NewConsolidationRepository(db),
			Grade:         sqlxrepos.NewGradeRepository(db),
			Sheet:         sqlxrepos.NewSheetRepository(db),
			Close:         db.Close,
		}, nil
	}
	return Repositories{}, errors.Errorf("unknown storage %q", conf.Storage)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	return emailsvc.NewService(conf, logger, newStdLogger("MAIL : "))
}

func newLedger(svc *consolidation.Service) consolidation.Ledger { return svc }

func newGradeWriter(svc *grade.Service) rubric.GradeWriter { return svc }

func newGradeReader(svc *grade.Service) report.GradeReader { return svc }

func newPeriodStates(svc *consolidation.Service) report.PeriodStates { return svc }

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Dir:           p.Dir,
		Consolidation: p.Consolidation,
		Grade:         p.Grade,
		Rubric:        p.Rubric,
		Report:        p.Report,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewValidator))
	must(c.Provide(newDirectory))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))

	must(c.Provide(consolidation.NewService))
	must(c.Provide(newLedger))
	must(c.Provide(grade.NewService))
	must(c.Provide(newGradeWriter))
	must(c.Provide(rubric.NewService))
	must(c.Provide(newGradeReader))
	must(c.Provide(newPeriodStates))
	must(c.Provide(report.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
