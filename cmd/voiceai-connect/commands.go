package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/cloudonix/voiceai-connect/internal/trunk_service/app"
	"github.com/cloudonix/voiceai-connect/internal/trunk_service/repository"
)

const usageText = `voiceai-connect - provision and reconcile SIP trunks between Cloudonix and Voice-AI providers

Usage:
  voiceai-connect configure <domain> --api-key KEY
  voiceai-connect service <provider> --api-key KEY [--name TRUNK --domain DOMAIN]
  voiceai-connect addnumber <domain> <provider> <number>
  voiceai-connect display [--provider PROVIDER]
  voiceai-connect sync [--provider PROVIDER] [--domain DOMAIN]
  voiceai-connect delete <domain> [--yes]

Providers: vapi, retell, elevenlabs (alias: 11labs)
`

type cli struct {
	store     repository.ConfigStore
	sync      *app.SyncAppService
	provision *app.ProvisionAppService
	display   *app.DisplayAppService
	stdout    io.Writer
	stderr    io.Writer
	stdin     io.Reader
}

// run dispatches one subcommand and returns the process exit code.
func (c *cli) run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(c.stderr, usageText)
		return 2
	}

	ctx := context.Background()
	switch args[0] {
	case "configure":
		return c.cmdConfigure(ctx, args[1:])
	case "service":
		return c.cmdService(ctx, args[1:])
	case "addnumber":
		return c.cmdAddNumber(ctx, args[1:])
	case "display":
		return c.cmdDisplay(ctx, args[1:])
	case "sync":
		return c.cmdSync(ctx, args[1:])
	case "delete":
		return c.cmdDelete(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(c.stdout, usageText)
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n\n", args[0])
		fmt.Fprint(c.stderr, usageText)
		return 2
	}
}

func (c *cli) cmdConfigure(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	apiKey := fs.String("api-key", "", "Cloudonix domain API key")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *apiKey == "" {
		fmt.Fprintln(c.stderr, "usage: voiceai-connect configure <domain> --api-key KEY")
		return 2
	}

	d, err := c.provision.ConfigureDomain(ctx, fs.Arg(0), *apiKey)
	if err != nil {
		fmt.Fprintf(c.stderr, "configure failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Domain %s configured.\n", d.DomainName)
	fmt.Fprintf(c.stdout, "  inbound SIP URI: %s\n", d.InboundSipURI)
	if d.Tenant != "" {
		fmt.Fprintf(c.stdout, "  tenant:          %s\n", d.Tenant)
	}
	return 0
}

func (c *cli) cmdService(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("service", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	apiKey := fs.String("api-key", "", "provider API key")
	name := fs.String("name", "", "trunk name to create on the provider")
	domainName := fs.String("domain", "", "Cloudonix domain the trunk serves")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *apiKey == "" {
		fmt.Fprintln(c.stderr, "usage: voiceai-connect service <provider> --api-key KEY [--name TRUNK --domain DOMAIN]")
		return 2
	}

	if err := c.provision.ConfigureProvider(ctx, fs.Arg(0), *apiKey, *name, *domainName); err != nil {
		fmt.Fprintf(c.stderr, "service configuration failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Provider %s configured.\n", fs.Arg(0))
	if *name != "" {
		fmt.Fprintf(c.stdout, "  trunk %q created for domain %s\n", *name, *domainName)
	}
	return 0
}

func (c *cli) cmdAddNumber(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("addnumber", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 3 {
		fmt.Fprintln(c.stderr, "usage: voiceai-connect addnumber <domain> <provider> <number>")
		return 2
	}

	rec, err := c.provision.AddNumber(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		fmt.Fprintf(c.stderr, "addnumber failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Number %s attached.\n", rec.Number)
	if rec.ProviderID != "" {
		fmt.Fprintf(c.stdout, "  provider id: %s\n", rec.ProviderID)
	}
	fmt.Fprintf(c.stdout, "  SIP URI:     %s\n", rec.SipURI)
	return 0
}

func (c *cli) cmdDisplay(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("display", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	providerFilter := fs.String("provider", "", "show a single provider")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	results, err := c.display.Display(ctx, *providerFilter)
	if err != nil {
		fmt.Fprintf(c.stderr, "display failed: %v\n", err)
		return 1
	}

	w := tabwriter.NewWriter(c.stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tNUMBER\tID\tSIP URI\tSTATUS\tSOURCE")
	for _, res := range results {
		if res.Skipped {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", res.Provider, res.SkipReason)
			continue
		}
		for _, row := range res.Rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				res.Provider, row.Number, orDash(row.RemoteID), orDash(row.SipURI), orDash(row.Status), row.Source)
		}
		if len(res.Rows) == 0 {
			fmt.Fprintf(w, "%s\t(no numbers)\t-\t-\t-\t-\n", res.Provider)
		}
	}
	w.Flush()
	return 0
}

func (c *cli) cmdSync(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	providerFilter := fs.String("provider", "", "reconcile a single provider")
	domainFilter := fs.String("domain", "", "reconcile a single domain's records")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	results, err := c.sync.Sync(ctx, app.SyncOptions{Provider: *providerFilter, Domain: *domainFilter})
	if err != nil {
		fmt.Fprintf(c.stderr, "sync failed: %v\n", err)
		return 1
	}

	attempted, failed := 0, 0
	for _, res := range results {
		switch {
		case res.Skipped:
			fmt.Fprintf(c.stdout, "%s: skipped (%s)\n", res.Provider, res.SkipReason)
		case res.Err != nil:
			attempted++
			failed++
			fmt.Fprintf(c.stdout, "%s: FAILED, no changes applied (%v)\n", res.Provider, res.Err)
		case len(res.Removed) == 0:
			attempted++
			fmt.Fprintf(c.stdout, "%s: in sync (%d local, %d remote)\n", res.Provider, res.LocalCount, res.RemoteCount)
		default:
			attempted++
			numbers := make([]string, 0, len(res.Removed))
			for _, rm := range res.Removed {
				numbers = append(numbers, fmt.Sprintf("%s [%s]", rm.Number, rm.Scope))
			}
			fmt.Fprintf(c.stdout, "%s: removed %d stale number(s): %s\n", res.Provider, len(res.Removed), strings.Join(numbers, ", "))
		}
	}

	// A partial multi-provider failure still exits zero; only a run where
	// every attempted provider failed is a process-level failure.
	if attempted > 0 && failed == attempted {
		return 1
	}
	return 0
}

func (c *cli) cmdDelete(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "usage: voiceai-connect delete <domain> [--yes]")
		return 2
	}
	domainName := fs.Arg(0)

	if !*yes && !c.confirm(fmt.Sprintf("Delete domain %s and all its trunk records? [y/N] ", domainName)) {
		fmt.Fprintln(c.stdout, "Aborted.")
		return 0
	}

	if err := c.provision.DeleteDomain(ctx, domainName); err != nil {
		fmt.Fprintf(c.stderr, "delete failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "Domain %s deleted.\n", domainName)
	return 0
}

// confirm prints prompt and reads one line; only "y"/"yes" counts.
func (c *cli) confirm(prompt string) bool {
	fmt.Fprint(c.stdout, prompt)
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
