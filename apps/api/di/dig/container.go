package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/compass/apps/api/echo"
	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
	emailsvc "github.com/trezcool/compass/services/email"
	logsvc "github.com/trezcool/compass/services/logger"
	"github.com/trezcool/compass/storage/database"
	inmemdb "github.com/trezcool/compass/storage/database/inmem"
	sqlxrepos "github.com/trezcool/compass/storage/database/sqlx"
	sessionstore "github.com/trezcool/compass/storage/session"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Database is the Postgres connection; DB is nil when the in-memory repositories are used.
type Database struct {
	DB *sqlx.DB
}

func (d Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// Repositories are the backends behind the domain services.
type Repositories struct {
	dig.Out
	Students  student.Repository
	Schools   school.Repository
	Reference reference.Repository
	Users     user.Repository
}

// SessionStores back the auth flags, sessions, session events and flash toasts.
type SessionStores struct {
	dig.Out
	Flags   auth.FlagStore
	Store   auth.SessionStore
	Broker  auth.Broker
	Flashes echoapi.FlashStore
	Redis   RedisClient
}

// RedisClient is nil when the in-memory session stores are used.
type RedisClient struct {
	Client *redis.Client
}

func (c RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

type ServerParams struct {
	dig.In
	Conf         *core.Config
	Logger       core.Logger
	StudentSvc   *student.Service
	SchoolSvc    *school.Service
	ReferenceSvc *reference.Service
	UserSvc      *user.Service
	Sessions     *auth.Sessions
	Flashes      echoapi.FlashStore
	Validate     *validator.Validate
	Translator   ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) Database {
	if conf.UseInMemoryDB() {
		loggerParam.Logger.Info("using the in-memory demo database")
		return Database{}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Database{DB: db}
}

func newRepositories(db Database) Repositories {
	if db.DB == nil {
		mem := inmemdb.OpenDemo()
		return Repositories{
			Students:  inmemdb.NewStudentRepository(mem),
			Schools:   inmemdb.NewSchoolRepository(mem),
			Reference: inmemdb.NewReferenceRepository(mem),
			Users:     inmemdb.NewUserRepository(mem),
		}
	}
	return Repositories{
		Students:  sqlxrepos.NewStudentRepository(db.DB),
		Schools:   sqlxrepos.NewSchoolRepository(db.DB),
		Reference: sqlxrepos.NewReferenceRepository(db.DB),
		Users:     sqlxrepos.NewUserRepository(db.DB),
	}
}

func newSessionStores(conf *core.Config, logger core.Logger) SessionStores {
	if conf.Redis.Addr == "" {
		store := sessionstore.NewMemoryStore()
		return SessionStores{
			Flags:   store,
			Store:   store,
			Broker:  sessionstore.NewMemoryBroker(),
			Flashes: store,
		}
	}

	client, err := sessionstore.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
	}
	store := sessionstore.NewRedisStore(client)
	return SessionStores{
		Flags:   store,
		Store:   store,
		Broker:  sessionstore.NewRedisBroker(client),
		Flashes: store,
		Redis:   RedisClient{Client: client},
	}
}

func newSessions(conf *core.Config, flags auth.FlagStore, store auth.SessionStore, broker auth.Broker) *auth.Sessions {
	return auth.NewSessions(flags, store, broker, conf.Server.SessionTTL)
}

func newEmailService(conf *core.Config, retrier core.Retrier, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, retrier, logger)
}

func newValidator() *validator.Validate {
	return validator.New()
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		StudentSvc:   p.StudentSvc,
		SchoolSvc:    p.SchoolSvc,
		ReferenceSvc: p.ReferenceSvc,
		UserSvc:      p.UserSvc,
		Sessions:     p.Sessions,
		Flashes:      p.Flashes,
		Validate:     p.Validate,
		Translator:   p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newSessionStores))
	must(c.Provide(newSessions))
	must(c.Provide(core.NewRetrier))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(student.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(reference.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
