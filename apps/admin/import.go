package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// importStudents bulk creates the students of a CSV or XLSX file. Nothing is written unless every row is valid.
func (cli *commandLine) importStudents(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	report, err := cli.stdSvc.Import(context.Background(), filepath.Base(path), file)
	if len(report.Parsed.Skipped) > 0 {
		fmt.Printf("skipped lines (wrong number of values): %v\n", report.Parsed.Skipped)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%d students have been uploaded.\n", len(report.Created))
	return nil
}
