package main

import (
	"fmt"

	"territory_backend/internal/scheduler"
	"territory_backend/internal/territory/service"
	"territory_backend/internal/territory/transport"
	"territory_backend/platform/db"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func migrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunMigrations(cmd.Context(), rt.pool); err != nil {
				return err
			}
			version, err := db.MigrationVersion(cmd.Context(), rt.pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
			return nil
		},
	}
}

func auditCmd(rt *runtime) *cobra.Command {
	var enqueue bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Run the consistency audit and print violation counts",
		Long: `Run the read-only consistency audit against the database.

With --enqueue the audit is handed to the scheduler worker instead, which
caches the report and updates the metrics.

Examples:
  territoryctl audit
  territoryctl audit --json
  territoryctl audit --enqueue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if enqueue {
				client, err := scheduler.NewClient(rt.cfg)
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()
				if err := client.EnqueueAudit(cmd.Context(), service.AuditTriggerManual); err != nil {
					return fmt.Errorf("enqueue audit: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "audit enqueued")
				return nil
			}

			report, err := rt.svc.RunAudit(cmd.Context(), service.AuditTriggerManual)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderAudit(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "queue the audit on the scheduler instead of running it here")
	return cmd
}

func assignCmd(rt *runtime) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "assign <territory-id> <agent-id>",
		Short: "Assign an agent to a territory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			territoryID, err := parseUUIDArg("territory", args[0])
			if err != nil {
				return err
			}
			agentID, err := parseUUIDArg("agent", args[1])
			if err != nil {
				return err
			}

			created, err := rt.svc.CreateAssignment(cmd.Context(), transport.CreateAssignmentRequest{
				TerritoryID: territoryID,
				AgentID:     agentID,
				Notes:       notes,
			})
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created assignment %s\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "free-form handover notes")
	return cmd
}

func unassignCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <assignment-id>",
		Short: "Delete an assignment and hand the territory back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUUIDArg("assignment", args[0])
			if err != nil {
				return err
			}
			if err := rt.svc.DeleteAssignment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted assignment %s\n", id)
			return nil
		},
	}
}

func visibleCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "visible <agent-id>",
		Short: "List the targets an agent currently sees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, err := parseUUIDArg("agent", args[0])
			if err != nil {
				return err
			}
			targets, err := rt.svc.ListVisibleTargets(cmd.Context(), agentID)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), targets)
			}
			return renderTargets(cmd.OutOrStdout(), targets)
		},
	}
}

func parseUUIDArg(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid %s id %q", name, raw)
	}
	return id, nil
}
