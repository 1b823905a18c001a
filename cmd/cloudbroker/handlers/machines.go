package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/provider"
)

// MachineCreateOptions holds the flags of the machine create command.
type MachineCreateOptions struct {
	Name  string
	Image string
	Size  string
	// SSHKey overrides the key from the key store.
	SSHKey       string
	Metadata     map[string]string
	UserDataFile string
}

// Machines lists the machines of the tenancy.
func Machines(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		machines, err := session.Machines(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(machines, func() view { return machineView(machines...) })
	})
}

func machineView(machines ...cloud.Machine) view {
	v := view{headers: []string{"ID", "NAME", "STATUS", "POWER", "INTERNAL IP", "EXTERNAL IP", "VOLUMES"}}
	for _, m := range machines {
		status := string(m.Status.Type)
		if m.Task != "" {
			status += " (" + m.Task + ")"
		}
		v.rows = append(v.rows, []string{
			m.ID,
			m.Name,
			status,
			string(m.PowerState),
			m.InternalIP,
			m.ExternalIP,
			strings.Join(m.VolumeIDs(), ","),
		})
	}
	return v
}

// CreateMachine creates a machine. Without an explicit key the stored key
// of the user is injected.
func CreateMachine(ctx context.Context, opts *Options, create MachineCreateOptions) error {
	var userData string
	if create.UserDataFile != "" {
		data, err := os.ReadFile(create.UserDataFile)
		if err != nil {
			return fmt.Errorf("failed to read user data: %w", err)
		}
		userData = string(data)
	}

	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		sshKey := create.SSHKey
		if sshKey == "" {
			var err error
			if sshKey, err = env.userKey(ctx); err != nil {
				return err
			}
		}
		metadata := make(map[string]any, len(create.Metadata))
		for k, v := range create.Metadata {
			metadata[k] = v
		}
		machine, err := session.CreateMachine(ctx, provider.MachineCreateRequest{
			Name:     create.Name,
			Image:    cloud.ByID[cloud.Image](create.Image),
			Size:     cloud.ByID[cloud.Size](create.Size),
			SSHKey:   sshKey,
			Metadata: metadata,
			UserData: userData,
		})
		if err != nil {
			return err
		}
		return env.printer.print(machine, func() view { return machineView(machine) })
	})
}

type machineAction func(*provider.ScopedSession, context.Context, cloud.Ref[cloud.Machine]) (cloud.Machine, error)

func runMachineAction(ctx context.Context, opts *Options, id string, action machineAction) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		machine, err := action(session, ctx, cloud.ByID[cloud.Machine](id))
		if err != nil {
			return err
		}
		return env.printer.print(machine, func() view { return machineView(machine) })
	})
}

// StartMachine powers a machine on.
func StartMachine(ctx context.Context, opts *Options, id string) error {
	return runMachineAction(ctx, opts, id, (*provider.ScopedSession).StartMachine)
}

// StopMachine powers a machine off.
func StopMachine(ctx context.Context, opts *Options, id string) error {
	return runMachineAction(ctx, opts, id, (*provider.ScopedSession).StopMachine)
}

// RestartMachine reboots a machine.
func RestartMachine(ctx context.Context, opts *Options, id string) error {
	return runMachineAction(ctx, opts, id, (*provider.ScopedSession).RestartMachine)
}

// DeleteMachine deletes a machine and shows it while it is still going away.
func DeleteMachine(ctx context.Context, opts *Options, id string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		machine, err := session.DeleteMachine(ctx, cloud.ByID[cloud.Machine](id))
		if err != nil {
			return err
		}
		if machine == nil {
			if env.printer.format != OutputTable {
				return env.printer.print(nil, nil)
			}
			return env.printer.message(true, "Machine %s deleted.", id)
		}
		return env.printer.print(machine, func() view { return machineView(*machine) })
	})
}

// MachineLogs prints the console log of a machine.
func MachineLogs(ctx context.Context, opts *Options, id string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		lines, err := session.MachineLogs(ctx, cloud.ByID[cloud.Machine](id))
		if err != nil {
			return err
		}
		if env.printer.format != OutputTable {
			return env.printer.print(lines, nil)
		}
		if len(lines) == 0 {
			return nil
		}
		return env.printer.raw(strings.Join(lines, "\n") + "\n")
	})
}
