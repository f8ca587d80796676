package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

type AuditCmd struct {
	List   AuditListCmd   `cmd:"" default:"withargs" help:"List recent audit entries"`
	Verify AuditVerifyCmd `cmd:"" help:"Verify the audit hash chain"`
}

type AuditListCmd struct {
	Limit  int    `help:"maximum entries to show" default:"50"`
	Action string `help:"only show this action (LOGIN or LOGOUT)"`
}

func (c *AuditListCmd) Run(ctx context.Context, globals *Globals) error {
	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	entries, err := api.AuditEntries(ctx, c.Limit, c.Action)
	if err != nil {
		return requireLogin(err)
	}

	w := tabwriter.NewWriter(globals.out(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tACTION\tSUCCESS\tIP\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n", e.ID, e.Timestamp.Local().Format(time.RFC3339), e.Action, e.Success, e.IPAddress, e.Detail)
	}
	return w.Flush()
}

type AuditVerifyCmd struct{}

func (c *AuditVerifyCmd) Run(ctx context.Context, globals *Globals) error {
	api, p, err := connect(ctx, globals)
	if err != nil {
		return err
	}
	defer p.Close()

	valid, count, err := api.VerifyAudit(ctx)
	if err != nil {
		return requireLogin(err)
	}
	if !valid {
		return fmt.Errorf("audit chain broken after %d entries", count)
	}

	fmt.Fprintf(globals.out(), "Audit chain intact (%d entries)\n", count)
	return nil
}
