package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/cohub/internal/assistant"
	"github.com/ashureev/cohub/internal/domain"
	"github.com/ashureev/cohub/internal/payments"
	"github.com/spf13/cobra"
)

func newAskCmd(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message through the assistant",
		Long: `Resolve a message the way the dashboard chat does: navigation phrases
report the route, payment questions are answered from the database, and
anything else goes to the configured assistant backend.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := opts.openStore()
			if err != nil {
				return err
			}
			defer repo.Close()

			cache := payments.NewCache(repo, slog.Default())
			if err := cache.Refresh(ctx); err != nil {
				return err
			}

			backend, err := assistant.NewBackend(ctx, opts.cfg)
			if err != nil {
				return err
			}

			svc, err := assistant.NewService(assistant.ServiceDeps{
				Answerer:   assistant.NewAnswerer(newFormatter(opts)),
				Dispatcher: assistant.NewDispatcher(backend, opts.cfg.Assistant.WrapContext, slog.Default()),
				Payments:   cache,
			})
			if err != nil {
				return err
			}

			user := &domain.User{UserID: "cli", IsGuest: name == "", FullName: name}
			sess := svc.Session(ctx, user, "cli")

			out := cmd.OutOrStdout()
			reply, ok := svc.Send(ctx, sess, strings.Join(args, " "), assistant.SendOptions{
				Channel: "cli",
				Navigate: func(route domain.Route) {
					fmt.Fprintf(out, "-> %s\n", route)
				},
			})
			if !ok {
				return fmt.Errorf("message is empty")
			}
			if reply.Response != "" {
				fmt.Fprintln(out, reply.Response)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "as", "", "Ask as a named user instead of a guest")
	return cmd
}
