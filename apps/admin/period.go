package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

const timeLayout = "2006-01-02 15:04 MST"

func (cli *commandLine) closePeriod(section, bimester, userID string) error {
	c, err := cli.consolidation.Close(context.Background(), section, bimester, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s closed by %s at %s\n", c.Section, c.Bimester, c.ClosedBy, c.ClosedAt.Format(timeLayout))
	return nil
}

func (cli *commandLine) reopenPeriod(section, bimester string) error {
	c, err := cli.consolidation.Reopen(context.Background(), section, bimester)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s %s reopened\n", c.Section, c.Bimester)
	return nil
}

func (cli *commandLine) status() error {
	all, err := cli.consolidation.ListAll(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tBIMESTER\tSTATE\tCLOSED BY\tCLOSED AT")
	for _, c := range all {
		state, at := "open", ""
		if c.IsClosed {
			state = "closed"
			if c.ClosedAt != nil {
				at = c.ClosedAt.Format(timeLayout)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Section, c.Bimester, state, c.ClosedBy, at)
	}
	return w.Flush()
}

func (cli *commandLine) coverage(section, bimester string) error {
	cov, err := cli.report.SectionCoverage(context.Background(), section, bimester)
	if err != nil {
		return err
	}
	state := "open"
	if cov.IsClosed {
		state = "closed"
	}
	fmt.Fprintf(cli.out, "%s %s (%s): %d/%d graded, %d%%\n", cov.Section, cov.Bimester, state, cov.Graded, cov.Expected, cov.Percent)
	return nil
}
