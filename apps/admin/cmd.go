package main

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/plan"
	"github.com/quizly/backend/core/publish"
	emailsvc "github.com/quizly/backend/services/email"
)

const (
	envToken      = "ADMIN_TOKEN"
	adminCallerID = "admin"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp         = errors.New("help provided")
	errMissingToken = errors.New("a service token is required")

	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	headColor = color.New(color.FgBlue, color.Bold)
)

type commandLine struct {
	conf     *core.Config
	planSvc  *plan.Service
	pubSvc   *publish.Service
	mailer   core.EmailService
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	var (
		token   string
		noColor bool
	)

	root := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			if !cmd.HasParent() || cmd.HasSubCommands() {
				return nil
			}
			tok, err := resolveToken(token)
			if err != nil {
				return err
			}
			cmd.SetContext(core.WithCaller(cmd.Context(), core.Caller{ID: adminCallerID, Token: tok}))
			return nil
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.SetContext(context.Background())
	root.PersistentFlags().StringVar(&token, "token", "", "service token forwarded upstream (defaults to $"+envToken+", then prompted)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(cli.expireSweepCmd(), cli.planCmd(), cli.mailCmd())
	return root
}

func resolveToken(flagVal string) (string, error) {
	if tok := strings.TrimSpace(flagVal); tok != "" {
		return tok, nil
	}
	if tok := strings.TrimSpace(os.Getenv(envToken)); tok != "" {
		return tok, nil
	}

	fmt.Print("Enter service token:")
	tok, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", errors.Wrap(err, "reading token")
	}
	if len(tok) == 0 {
		return "", errMissingToken
	}
	return strings.TrimSpace(string(tok)), nil
}

func groupCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
}

func (cli *commandLine) expireSweepCmd() *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "expire-sweep",
		Short: "Take every publication expired before --before offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := core.NowFunc()
			if before != "" {
				t, err := time.Parse(time.RFC3339, before)
				if err != nil {
					return errors.Errorf("--before must be an RFC3339 time (got %q)", before)
				}
				now = t
			}
			return cli.expireSweep(cmd.Context(), now)
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "RFC3339 cut-off, defaults to now")
	return cmd
}

func (cli *commandLine) expireSweep(ctx context.Context, now time.Time) error {
	results, err := cli.pubSvc.SweepExpired(ctx, now)
	if err != nil {
		return err
	}
	// owners are notified in the background
	defer emailsvc.Flush(cli.mailer)

	if len(results) == 0 {
		_, _ = warnColor.Fprintln(cli.out, "No expired publications")
		return nil
	}

	var expired, skipped, failed int
	_, _ = headColor.Fprintf(cli.out, "%-8s %-24s %s\n", "STATUS", "LINK", "QUIZ")
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			_, _ = errColor.Fprintf(cli.out, "%-8s %-24s %s: %v\n", "failed", res.Link, res.QuizID, res.Err)
		case res.Skipped:
			skipped++
			_, _ = warnColor.Fprintf(cli.out, "%-8s %-24s %s\n", "skipped", res.Link, res.QuizID)
		default:
			expired++
			_, _ = okColor.Fprintf(cli.out, "%-8s %-24s %s (%s)\n", "expired", res.Link, res.QuizID, res.Title)
		}
	}
	_, _ = fmt.Fprintf(cli.out, "%d expired, %d skipped, %d failed\n", expired, skipped, failed)

	if failed > 0 {
		return errors.Errorf("%d publication(s) could not be expired", failed)
	}
	return nil
}

func (cli *commandLine) planCmd() *cobra.Command {
	cmd := groupCmd("plan", "Inspect or change a user's subscription plan")

	get := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show a user's plan and limits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.planSvc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cli.printPlan(p)
			return nil
		},
	}

	var renewsAt string
	set := &cobra.Command{
		Use:   "set USER_ID TIER",
		Short: "Change a user's plan tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			up := plan.UpdatePlan{Tier: plan.Tier(strings.ToLower(args[1]))}
			if !up.Tier.Valid() {
				return errors.Errorf("unknown tier %q (one of %s)", args[1], tierNames())
			}
			if renewsAt != "" {
				t, err := time.Parse(time.RFC3339, renewsAt)
				if err != nil {
					return errors.Errorf("--renews-at must be an RFC3339 time (got %q)", renewsAt)
				}
				up.RenewsAt = &t
			}
			if err := up.Validate(cli.validate); err != nil {
				return err
			}

			p, err := cli.planSvc.Update(cmd.Context(), args[0], up)
			if err != nil {
				return err
			}
			_, _ = okColor.Fprintf(cli.out, "%s is now on the %s plan\n", p.UserID, p.Tier)
			cli.printPlan(p)
			return nil
		},
	}
	set.Flags().StringVar(&renewsAt, "renews-at", "", "RFC3339 renewal time")

	cmd.AddCommand(get, set)
	return cmd
}

func (cli *commandLine) printPlan(p plan.Plan) {
	l := p.Tier.Limits()
	_, _ = headColor.Fprintf(cli.out, "%s (%s)\n", p.UserID, p.Tier)
	_, _ = fmt.Fprintf(cli.out, "  %-20s %s\n", "quizzes", limitStr(l.MaxQuizzes))
	_, _ = fmt.Fprintf(cli.out, "  %-20s %s\n", "questions per quiz", limitStr(l.MaxQuestions))
	_, _ = fmt.Fprintf(cli.out, "  %-20s %s\n", "attempts", limitStr(l.MaxAttempts))
	_, _ = fmt.Fprintf(cli.out, "  %-20s %s\n", "publish days", limitStr(l.MaxPublishDays))
	_, _ = fmt.Fprintf(cli.out, "  %-20s %t\n", "secret key", l.SecretKey)
	_, _ = fmt.Fprintf(cli.out, "  %-20s %t\n", "candidate feedback", l.CandidateFeedback)
	if p.RenewsAt != nil {
		_, _ = fmt.Fprintf(cli.out, "  %-20s %s\n", "renews at", p.RenewsAt.Format(time.RFC3339))
	}
}

func limitStr(n int) string {
	if n == 0 {
		return "unlimited"
	}
	return fmt.Sprint(n)
}

func tierNames() string {
	names := make([]string, 0, len(plan.Tiers))
	for _, t := range plan.Tiers {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func (cli *commandLine) mailCmd() *cobra.Command {
	cmd := groupCmd("mail", "Email delivery tools")

	test := &cobra.Command{
		Use:   "test ADDRESS",
		Short: "Send a test email through the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := mail.ParseAddress(args[0])
			if err != nil {
				return errors.Errorf("invalid address %q", args[0])
			}
			cli.mailer.SendMessages(&core.EmailMessage{
				To:      []mail.Address{*addr},
				Subject: "Test email",
				BodyStr: fmt.Sprintf("This is a test email from %s.", cli.conf.AppName),
				Tag:     "test",
			})
			emailsvc.Flush(cli.mailer)
			_, _ = okColor.Fprintf(cli.out, "test email sent to %s\n", addr.Address)
			return nil
		},
	}

	cmd.AddCommand(test)
	return cmd
}
