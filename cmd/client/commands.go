package main

import (
	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:     "put <collection> key=value...",
		Short:   "Create or replace a document locally",
		Example: "  docsync-client put customers --id b1 name=Acme employees=42",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.Put(cmd.Context(), args[0], id, args[1:])
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Document id (generated when empty)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a document locally and queue the tombstone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.Delete(cmd.Context(), args[0], args[1], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "List local documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.List(cmd.Context(), args[0])
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <collection>...",
		Short: "Push pending changes and pull until caught up",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.Sync(cmd.Context(), args)
		},
	}
}

func newReplicateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "replicate <collection>...",
		Short: "Replicate continuously until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.Replicate(cmd.Context(), args)
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <collection>...",
		Short: "Show checkpoint and push queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.Status(cmd.Context(), args)
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <collection>...",
		Short: "Forget the checkpoint so the next sync pulls everything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cli.Reset(cmd.Context(), args)
		},
	}
}
