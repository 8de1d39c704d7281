package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hongminglow/therapy-console/internal/models"
)

func newDeviceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage headsets",
	}
	cmd.AddCommand(newDeviceAddCmd(a), newDeviceSetStatusCmd(a), newDeviceDeleteCmd(a))
	return cmd
}

func newDeviceAddCmd(a *app) *cobra.Command {
	var inUse bool

	cmd := &cobra.Command{
		Use:   "add <picoNumber>",
		Short: "Register a headset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := models.Device{PicoNumber: args[0], Status: models.DeviceIdle}
			if inUse {
				d.Status = models.DeviceInUse
			}
			if err := a.api.Devices.Add(cmd.Context(), d); err != nil {
				return fmt.Errorf("add device: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device %s added\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&inUse, "in-use", false, "Mark the headset as in use")
	return cmd
}

func newDeviceSetStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <picoNumber> <status>",
		Short: "Update a headset's status (0 idle, 1 in use)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			status, err := strconv.Atoi(args[2])
			if err != nil || (status != models.DeviceIdle && status != models.DeviceInUse) {
				return fmt.Errorf("status must be %d or %d", models.DeviceIdle, models.DeviceInUse)
			}
			if err := a.api.Devices.Update(cmd.Context(), models.Device{ID: id, PicoNumber: args[1], Status: status}); err != nil {
				return fmt.Errorf("update device: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Device %d updated\n", id)
			return nil
		},
	}
}

func newDeviceDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove headsets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", arg)
				}
				ids = append(ids, id)
			}
			if err := a.api.Devices.Delete(cmd.Context(), ids); err != nil {
				return fmt.Errorf("delete devices: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d device(s)\n", len(ids))
			return nil
		},
	}
}
