package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nexussync/clubs/core/message"
)

func (a *app) messagesCmd() *cobra.Command {
	var sender string
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List the sent messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			ms, err := a.remote.Messages(cmd.Context(), sender)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, m := range ms {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d recipients\n", m.CreatedAt.Local().Format(timeLayout),
					audienceLabel(m), m.Subject, m.RecipientCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "", "only this sender's messages (admins)")

	var nm message.NewMessage
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a message to every user, a club or a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.session(); err != nil {
				return err
			}
			m, err := a.remote.SendMessage(cmd.Context(), nm)
			if err != nil {
				return err
			}
			a.success("Sent %q to %d recipients", m.Subject, m.RecipientCount)
			return nil
		},
	}
	send.Flags().StringVar(&nm.Audience, "audience", message.AudienceAll, "all, club or role")
	send.Flags().StringVar(&nm.ClubID, "club", "", "the club, with --audience club")
	send.Flags().StringVar(&nm.Role, "role", "", "the role (student:, lead:, admin:), with --audience role")
	send.Flags().StringVarP(&nm.Subject, "subject", "s", "", "subject")
	send.Flags().StringVarP(&nm.Body, "body", "b", "", "body")
	send.Flags().BoolVar(&nm.SendEmail, "email", false, "email the recipients as well")
	_ = send.MarkFlagRequired("subject")
	_ = send.MarkFlagRequired("body")

	cmd.AddCommand(send)
	return cmd
}

func audienceLabel(m message.Message) string {
	switch m.Audience {
	case message.AudienceClub:
		return "club " + m.ClubID
	case message.AudienceRole:
		return "role " + m.Role
	default:
		return "everyone"
	}
}
