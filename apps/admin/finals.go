package main

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/services/report"
)

func (cli *commandLine) generateFinals(schoolID string, year int, groupID, email string) error {
	ctx := context.Background()
	scope := qualification.FinalsScope{SchoolID: schoolID, Year: year}
	if groupID != "" {
		scope.GroupID = null.StringFrom(groupID)
	}

	res, err := cli.qualSvc.GenerateFinals(ctx, "", scope)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "%d final grades generated\n", res.Count)

	if email == "" {
		return nil
	}
	return cli.mailFinals(ctx, schoolID, year, email)
}

// mailFinals sends the XLSX report of the school's finals of year.
func (cli *commandLine) mailFinals(ctx context.Context, schoolID string, year int, email string) error {
	to, err := mail.ParseAddress(email)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "email", Error: "invalid email"})
	}

	finals, err := cli.qualSvc.ListFinalsByYear(ctx, year, schoolID)
	if err != nil {
		return err
	}
	expanded, err := cli.qualSvc.Expand(ctx, finals...)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = report.WriteFinals(&buf, expanded); err != nil {
		return err
	}

	school := schoolID
	if len(expanded) > 0 && expanded[0].School != nil {
		school = expanded[0].School.Name
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{*to},
		Subject:      fmt.Sprintf("Final grades %d", year),
		TemplateName: "finals_report",
		TemplateData: map[string]interface{}{"Year": year, "School": school, "Count": len(expanded)},
	}
	if err = msg.Attach(&buf, report.FinalsFilename(year), report.XLSXContentType); err != nil {
		return errors.Wrap(err, "attaching finals report")
	}
	cli.mailSvc.SendMessages(msg)
	return nil
}
