package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/campuspass/server/internal/campus/types"
)

var userCmd = &cobra.Command{Use: "user", Short: "Manage users"}

var (
	userPassword string
	userAdmin    bool
	userOld      string
	userNew      string
)

var userAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a user",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.AddUser(cmd.Context(), args[0], userPassword, userAdmin))
	}),
}

// Without --old the change is an administrative reset.
var userPasswdCmd = &cobra.Command{
	Use:   "passwd NAME",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.ChangePassword(cmd.Context(), args[0], optional(cmd, "old", userOld), userNew))
	}),
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a user and every vehicle they registered",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.DeleteUser(cmd.Context(), args[0], optional(cmd, "password", userPassword)))
	}),
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, rt *runtime) error {
		page := rt.engine.GetUsers(cmd.Context(), listLimit, listCursor)
		if !page.OK {
			return fmt.Errorf("%s", page.Message)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tADMIN\tCREATED")
		for _, u := range page.Data {
			fmt.Fprintf(tw, "%d\t%s\t%v\t%s\n", u.ID, u.Name, u.IsAdmin, types.FormatTime(u.CreatedAt))
		}
		printCursor(tw, page.Total, page.NextCursor)
		return tw.Flush()
	}),
}

var sensorCmd = &cobra.Command{Use: "sensor", Short: "Manage sensors"}

var (
	sensorLocation    string
	sensorDescription string
	sensorGate        bool
	sensorInactive    bool
)

var sensorAddCmd = &cobra.Command{
	Use:   "add CODE",
	Short: "Register a sensor; the gate flag is fixed at creation",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.AddSensor(cmd.Context(), types.NewSensor{
			Code:        args[0],
			Location:    sensorLocation,
			Description: sensorDescription,
			Active:      !sensorInactive,
			Gate:        sensorGate,
		}))
	}),
}

var sensorStatusCmd = &cobra.Command{
	Use:       "status CODE active|inactive",
	Short:     "Activate or deactivate a sensor",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"active", "inactive"},
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		var active bool
		switch args[1] {
		case "active":
			active = true
		case "inactive":
		default:
			return fmt.Errorf("status must be active or inactive, got %q", args[1])
		}
		return report(cmd, rt.engine.UpdateSensorStatus(cmd.Context(), args[0], active))
	}),
}

var sensorDeleteCmd = &cobra.Command{
	Use:   "delete CODE",
	Short: "Delete a sensor and its passage records",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.DeleteSensor(cmd.Context(), args[0]))
	}),
}

var vehicleCmd = &cobra.Command{Use: "vehicle", Short: "Manage vehicles"}

var (
	vehicleOwner    int64
	vehicleOnCampus bool
)

var vehicleAddCmd = &cobra.Command{
	Use:   "add CODE --owner ID",
	Short: "Register a vehicle to an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.AddVehicle(cmd.Context(), args[0], vehicleOwner, vehicleOnCampus))
	}),
}

var vehicleDeleteCmd = &cobra.Command{
	Use:   "delete CODE",
	Short: "Delete a vehicle and its passage records",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, rt *runtime) error {
		return report(cmd, rt.engine.DeleteVehicle(cmd.Context(), args[0]))
	}),
}

var listLimit, listCursor int

func init() {
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant administrator role")
	_ = userAddCmd.MarkFlagRequired("password")

	userPasswdCmd.Flags().StringVar(&userOld, "old", "", "current password; omit for an administrative reset")
	userPasswdCmd.Flags().StringVar(&userNew, "new", "", "new password")
	_ = userPasswdCmd.MarkFlagRequired("new")

	userDeleteCmd.Flags().StringVar(&userPassword, "password", "", "user's password; omit for an administrative delete")

	userListCmd.Flags().IntVar(&listLimit, "limit", types.DefaultPageLimit, "page size")
	userListCmd.Flags().IntVar(&listCursor, "cursor", 0, "offset of the first row")

	userCmd.AddCommand(userAddCmd, userPasswdCmd, userDeleteCmd, userListCmd)

	sensorAddCmd.Flags().StringVar(&sensorLocation, "location", "", "unique location name")
	sensorAddCmd.Flags().StringVar(&sensorDescription, "description", "", "free text")
	sensorAddCmd.Flags().BoolVar(&sensorGate, "gate", false, "crossings toggle on-campus state")
	sensorAddCmd.Flags().BoolVar(&sensorInactive, "inactive", false, "register as inactive")
	_ = sensorAddCmd.MarkFlagRequired("location")

	sensorCmd.AddCommand(sensorAddCmd, sensorStatusCmd, sensorDeleteCmd)

	vehicleAddCmd.Flags().Int64Var(&vehicleOwner, "owner", 0, "registering user's id (see user list)")
	vehicleAddCmd.Flags().BoolVar(&vehicleOnCampus, "on-campus", false, "initial on-campus state")
	_ = vehicleAddCmd.MarkFlagRequired("owner")

	vehicleCmd.AddCommand(vehicleAddCmd, vehicleDeleteCmd)
}

// optional returns a pointer to value only when the flag was given.
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func printCursor(w io.Writer, total int, next *int) {
	if next != nil {
		fmt.Fprintf(w, "\n%d total, next --cursor %d\n", total, *next)
		return
	}
	fmt.Fprintf(w, "\n%d total\n", total)
}
