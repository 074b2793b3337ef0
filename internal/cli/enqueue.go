package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vendoralerts/internal/db"
	"vendoralerts/internal/model"
	"vendoralerts/internal/notification"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		in         notification.ManualRequest
		userIDs    []int64
		roles      []string
		priority   int
		entityType string
		entityID   int64
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a notification for the running workers to deliver",
		Example: `  vendoralerts enqueue --type system_update --message "Maintenance tonight" --role admin
  vendoralerts enqueue --type system_update --message "Import done" --user 4 --user 9 --priority 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(userIDs) > 0 && len(roles) > 0:
				return errors.New("use either --user or --role, not both")
			case len(userIDs) > 0:
				in.Recipients = model.UserRecipients(userIDs...)
			default:
				in.Recipients = model.RoleRecipients(roles...)
			}
			in.Priority = model.Priority(priority)
			if cmd.Flags().Changed("entity-type") {
				in.EntityType = &entityType
			}
			if cmd.Flags().Changed("entity-id") {
				in.EntityID = &entityID
			}

			conn, err := db.Connect(a.cfg.DB)
			if err != nil {
				return err
			}
			defer conn.Close()

			svc := notification.NewService(db.New(conn), nil, a.log)
			id, err := svc.EnqueueManual(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Kind, "type", model.KindSystemUpdate, "notification type")
	f.StringVar(&in.Message, "message", "", "notification text")
	f.Int64SliceVar(&userIDs, "user", nil, "recipient user id (repeatable)")
	f.StringSliceVar(&roles, "role", nil, "recipient role (repeatable)")
	f.IntVar(&priority, "priority", int(model.PriorityLow), "1 (low), 2 (medium) or 3 (high)")
	f.StringVar(&entityType, "entity-type", "", "type of the entity the notification is about")
	f.Int64Var(&entityID, "entity-id", 0, "id of the entity the notification is about")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
