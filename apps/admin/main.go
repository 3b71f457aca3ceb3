package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
	appfs "github.com/trezcool/compass/fs"
	emailsvc "github.com/trezcool/compass/services/email"
	logsvc "github.com/trezcool/compass/services/logger"
	"github.com/trezcool/compass/storage/database"
	inmemdb "github.com/trezcool/compass/storage/database/inmem"
	sqlxrepos "github.com/trezcool/compass/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	os.Exit(run())
}

func run() int {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	appLogger := logsvc.NewRollbarLogger(logger, conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, appLogger)

	// set up DB & repos
	var (
		sqlDB   *sql.DB
		usrRepo user.Repository
		stdRepo student.Repository
	)
	if conf.UseInMemoryDB() {
		logger.Println("no database configured: changes only last for this command")
		mem := inmemdb.OpenDemo()
		usrRepo = inmemdb.NewUserRepository(mem)
		stdRepo = inmemdb.NewStudentRepository(mem)
	} else {
		db, err := database.Open(conf)
		if err != nil {
			logger.Printf("error: %s\n", err)
			return 1
		}
		//goland:noinspection GoUnhandledErrorResult
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Printf("error: %s\n", err)
			return 1
		}
		sqlDB = db.DB
		usrRepo = sqlxrepos.NewUserRepository(db)
		stdRepo = sqlxrepos.NewStudentRepository(db)
	}

	// start CLI
	cli := commandLine{
		db:         sqlDB,
		usrSvc:     user.NewService(usrRepo, emailsvc.NewConsoleService(conf, appLogger), validate, conf),
		stdSvc:     student.NewService(stdRepo, core.NewRetrier(conf, appLogger), validate, appLogger),
		translator: translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		return 1
	}
	return 0
}
