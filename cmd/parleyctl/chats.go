package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the users you can talk to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				if _, err := e.session(ctx); err != nil {
					return err
				}
				users, err := e.client.ListUsers(ctx)
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(users)
				}
				if len(users) == 0 {
					fmt.Println("No other users yet.")
					return nil
				}
				for _, u := range users {
					fmt.Printf("%-36s %-24s %s\n", u.ID, u.Name, u.Email)
				}
				return nil
			})
		},
	}
}

func chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				s, err := e.session(ctx)
				if err != nil {
					return err
				}
				convs, err := e.client.LoadSnapshot(ctx, s.UserID)
				if err != nil {
					return err
				}
				index := chat.NewIndex()
				for _, c := range convs {
					index.UpsertConversation(c)
				}
				items := index.Projection(s.UserID)
				if jsonOut {
					return outputJSON(items)
				}
				if len(items) == 0 {
					fmt.Println("No conversations yet.")
					return nil
				}
				printItems(items, time.Now())
				return nil
			})
		},
	}
}

func showCmd() *cobra.Command {
	var limit int
	var seen bool
	cmd := &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				s, err := e.session(ctx)
				if err != nil {
					return err
				}
				conv, err := e.client.Conversation(ctx, args[0])
				if err != nil {
					return err
				}
				msgs, hasMore, err := e.client.ListMessages(ctx, conv.ID, chat.Cursor{}, limit)
				if err != nil {
					return err
				}
				if seen {
					if err := e.client.MarkSeen(ctx, conv.ID); err != nil {
						return err
					}
				}
				if jsonOut {
					return outputJSON(map[string]any{"conversation": conv, "messages": msgs, "has_more": hasMore})
				}
				names := userNames(conv.Users, s.UserID)
				if hasMore {
					_, _ = color.New(color.FgHiBlack).Println("(older messages not shown)")
				}
				for _, m := range msgs {
					printMessage(m, names, s.UserID, time.Now())
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of most recent messages")
	cmd.Flags().BoolVar(&seen, "seen", false, "mark the conversation as seen")
	return cmd
}

func sendCmd() *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "send <conversation-id> [text...]",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.TrimSpace(strings.Join(args[1:], " "))
			if body == "" && image == "" {
				return errors.New("nothing to send")
			}
			return run(callTimeout, func(ctx context.Context, e *env) error {
				if _, err := e.session(ctx); err != nil {
					return err
				}
				m, err := e.client.SendMessage(ctx, args[0], body, image)
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(m)
				}
				color.Green("Sent %s", m.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image URL to attach")
	return cmd
}

func newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <user>",
		Short: "Open a direct conversation with a user (id, email or name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				s, err := e.session(ctx)
				if err != nil {
					return err
				}
				users, err := e.client.ListUsers(ctx)
				if err != nil {
					return err
				}
				other, err := findUser(users, args[0])
				if err != nil {
					return err
				}
				conv, err := e.client.CreateDirectConversation(ctx, s.UserID, other.ID)
				var conflict *chat.ConflictError
				if errors.As(err, &conflict) {
					conv, err = conflict.Existing, nil
				}
				if err != nil {
					return err
				}
				return printConversation(conv)
			})
		},
	}
}

func groupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group <name> <user> <user> [user...]",
		Short: "Create a group conversation",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				if _, err := e.session(ctx); err != nil {
					return err
				}
				users, err := e.client.ListUsers(ctx)
				if err != nil {
					return err
				}
				members := make([]string, 0, len(args)-1)
				for _, q := range args[1:] {
					u, err := findUser(users, q)
					if err != nil {
						return err
					}
					members = append(members, u.ID)
				}
				conv, err := e.client.CreateGroup(ctx, args[0], members)
				if err != nil {
					return err
				}
				return printConversation(conv)
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation for every participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				if _, err := e.session(ctx); err != nil {
					return err
				}
				if err := e.client.DeleteConversation(ctx, args[0]); err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(map[string]string{"deleted": args[0]})
				}
				color.Green("Deleted %s", args[0])
				return nil
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(callTimeout, func(ctx context.Context, e *env) error {
				resp, err := e.client.Status(ctx)
				if err != nil {
					return err
				}
				if jsonOut {
					return outputJSON(resp)
				}
				fmt.Printf("Profile:       %s\n", resp.Profile)
				fmt.Printf("Uptime:        %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
				fmt.Printf("Users:         %d\n", resp.Users)
				fmt.Printf("Conversations: %d\n", resp.Conversations)
				fmt.Printf("Messages:      %d\n", resp.Messages)
				if len(resp.Providers) > 0 {
					fmt.Printf("OAuth:         %s\n", strings.Join(resp.Providers, ", "))
				}
				return nil
			})
		},
	}
}

// findUser matches query against id, then email, then a unique
// case-insensitive name.
func findUser(users []chat.User, query string) (chat.User, error) {
	for _, u := range users {
		if u.ID == query {
			return u, nil
		}
	}
	for _, u := range users {
		if u.Email != "" && strings.EqualFold(u.Email, query) {
			return u, nil
		}
	}
	var match []chat.User
	for _, u := range users {
		if strings.EqualFold(u.Name, query) {
			match = append(match, u)
		}
	}
	switch len(match) {
	case 0:
		return chat.User{}, fmt.Errorf("no user matches %q", query)
	case 1:
		return match[0], nil
	default:
		return chat.User{}, fmt.Errorf("%d users are named %q, use an id or email", len(match), query)
	}
}
