package main

import (
	"log"
	"os"

	"github.com/nocheto/libretas/core"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/report"
	emailsvc "github.com/nocheto/libretas/services/email"
	logsvc "github.com/nocheto/libretas/services/logger"
	"github.com/nocheto/libretas/storage/database"
	sqlxrepos "github.com/nocheto/libretas/storage/database/sqlx"
	"github.com/nocheto/libretas/storage/directory"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)

	dir, err := directory.Load(conf.DirectoryFile)
	if err != nil {
		logger.Fatal("loading school directory", err)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	validate, _ := core.NewValidator()
	mailSvc := emailsvc.NewService(conf, logger, std)
	consSvc := consolidation.NewService(sqlxrepos.NewConsolidationRepository(db), dir, mailSvc, logger)
	gradeSvc := grade.NewService(sqlxrepos.NewGradeRepository(db), consSvc, dir, validate, logger)

	// start CLI
	cli := commandLine{
		db:            db.DB,
		out:           os.Stdout,
		consolidation: consSvc,
		report:        report.NewService(gradeSvc, consSvc, dir),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
