package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/vishusingh1/classroom/apps/api/echo"
	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/user"
	"github.com/vishusingh1/classroom/services/cloudinary"
	emailsvc "github.com/vishusingh1/classroom/services/email"
	logsvc "github.com/vishusingh1/classroom/services/logger"
	"github.com/vishusingh1/classroom/services/metrics"
	"github.com/vishusingh1/classroom/storage/database"
	inmemdb "github.com/vishusingh1/classroom/storage/database/inmem"
	sqlxrepos "github.com/vishusingh1/classroom/storage/database/sqlx"
)

// engineMemory keeps everything in process; nothing survives a restart.
const engineMemory = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is the database handle (nil with the in-memory engine) and the repositories built on it.
type Storage struct {
	dig.Out
	DB      *sqlx.DB
	Users   user.Repository
	Classes class.Repository
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	UserSvc    *user.Service
	ClassSvc   *class.Service
	Provider   *cloudinary.Bootstrap
	Metrics    *metrics.Metrics
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == engineMemory {
		loggerParam.Logger.Warn("using the in-memory database")
		db := inmemdb.Open()
		return Storage{Users: inmemdb.NewUserRepository(db), Classes: inmemdb.NewClassRepository(db)}
	}

	setUp := func() (*sqlx.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if conf.Database.AdminUser != "" {
			if err := database.CreateIfNotExist(ctx, conf); err != nil {
				return nil, err
			}
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Storage{DB: db, Users: sqlxrepos.NewUserRepository(db), Classes: sqlxrepos.NewClassRepository(db)}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, os.Stdout, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newValidator registers the custom validators; the server checks its settings with them.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newProvider(conf *core.Config, logger core.Logger) *cloudinary.Bootstrap {
	return cloudinary.NewBootstrap(conf, cloudinary.NewClient(conf), logger)
}

func newServer(p serverParams) (*echoapi.Server, error) {
	return echoapi.NewServer(echoapi.Options{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		UserSvc:    p.UserSvc,
		ClassSvc:   p.ClassSvc,
		Provider:   p.Provider,
		Metrics:    p.Metrics,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(user.NewService))
	must(c.Provide(class.NewService))
	must(c.Provide(newProvider))
	must(c.Provide(metrics.New))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
