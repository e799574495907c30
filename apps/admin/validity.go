package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

func (cli *commandLine) listValidities() error {
	validities, err := cli.validitySvc.List(context.Background(), nil)
	if err != nil {
		return err
	}
	if len(validities) == 0 {
		color.New(color.FgYellow).Fprintln(cli.out, "no validities")
		return nil
	}

	table := tablewriter.NewWriter(cli.out)
	table.SetHeader([]string{"ID", "Year", "School", "Active", "Grades", "Recovery"})
	for _, v := range validities {
		active := ""
		if v.Active {
			active = "yes"
		}
		table.Append([]string{
			v.ID,
			strconv.Itoa(v.Year),
			v.SchoolID,
			active,
			fmt.Sprintf("%.1f - %.1f", v.MinGrade, v.MaxGrade),
			fmt.Sprintf("%s %.0f%%", v.RecoveryType, v.RecoveryPercentage),
		})
	}
	table.Render()
	return nil
}

func (cli *commandLine) activate(id string) error {
	v, err := cli.validitySvc.Activate(context.Background(), id)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cli.out, "validity %d of school %s is now active\n", v.Year, v.SchoolID)
	return nil
}
