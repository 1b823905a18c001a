package handlers

import (
	"context"
	"strconv"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/provider"
)

// Volumes lists the volumes of the tenancy.
func Volumes(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		volumes, err := session.Volumes(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(volumes, func() view { return volumeView(volumes...) })
	})
}

func volumeView(volumes ...cloud.Volume) view {
	v := view{headers: []string{"ID", "NAME", "STATUS", "SIZE (GB)", "MACHINE", "DEVICE"}}
	for _, vol := range volumes {
		v.rows = append(v.rows, []string{
			vol.ID,
			vol.Name,
			string(vol.Status),
			strconv.Itoa(vol.SizeGB),
			vol.AttachedMachineID,
			vol.Device,
		})
	}
	return v
}

// CreateVolume creates an unattached volume.
func CreateVolume(ctx context.Context, opts *Options, name string, sizeGB int) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		vol, err := session.CreateVolume(ctx, name, sizeGB)
		if err != nil {
			return err
		}
		return env.printer.print(vol, func() view { return volumeView(vol) })
	})
}

// DeleteVolume deletes a volume.
func DeleteVolume(ctx context.Context, opts *Options, id string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		vol, err := session.DeleteVolume(ctx, cloud.ByID[cloud.Volume](id))
		if err != nil {
			return err
		}
		if vol == nil {
			if env.printer.format != OutputTable {
				return env.printer.print(nil, nil)
			}
			return env.printer.message(true, "Volume %s deleted.", id)
		}
		return env.printer.print(vol, func() view { return volumeView(*vol) })
	})
}

// AttachVolume attaches a volume to a machine.
func AttachVolume(ctx context.Context, opts *Options, volumeID, machineID string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		vol, err := session.AttachVolume(ctx, cloud.ByID[cloud.Volume](volumeID), cloud.ByID[cloud.Machine](machineID))
		if err != nil {
			return err
		}
		return env.printer.print(vol, func() view { return volumeView(vol) })
	})
}

// DetachVolume detaches a volume from its machine.
func DetachVolume(ctx context.Context, opts *Options, volumeID string) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		vol, err := session.DetachVolume(ctx, cloud.ByID[cloud.Volume](volumeID))
		if err != nil {
			return err
		}
		return env.printer.print(vol, func() view { return volumeView(vol) })
	})
}
