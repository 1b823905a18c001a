package provider

import (
	"context"
	"slices"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

// Volumes lists the volumes of the tenancy.
func (s *ScopedSession) Volumes(ctx context.Context) ([]cloud.Volume, error) {
	return do(ctx, s.log, "volumes", func() ([]cloud.Volume, error) {
		s.log.Info("Fetching available volumes")
		bs, err := s.conn.BlockStore()
		if err != nil {
			return nil, err
		}
		all, err := bs.Volumes(ctx)
		if err != nil {
			return nil, err
		}
		volumes := make([]cloud.Volume, 0, len(all))
		for _, v := range all {
			volumes = append(volumes, toVolume(v))
		}
		s.log.Info("Found volumes", "count", len(volumes))
		return volumes, nil
	})
}

// FindVolume returns one volume.
func (s *ScopedSession) FindVolume(ctx context.Context, id string) (cloud.Volume, error) {
	return do(ctx, s.log, "find_volume", func() (cloud.Volume, error) {
		return s.findVolume(ctx, id)
	})
}

func (s *ScopedSession) findVolume(ctx context.Context, id string, opts ...cloudapi.GetOption) (cloud.Volume, error) {
	s.log.Info("Fetching volume", "volume", id)
	bs, err := s.conn.BlockStore()
	if err != nil {
		return cloud.Volume{}, err
	}
	v, err := bs.Volume(ctx, id, opts...)
	if err != nil {
		return cloud.Volume{}, err
	}
	return toVolume(v), nil
}

func (s *ScopedSession) resolveVolume(ctx context.Context, ref cloud.Ref[cloud.Volume]) (cloud.Volume, error) {
	if v, ok := ref.Value(); ok {
		return v, nil
	}
	return s.findVolume(ctx, ref.ID())
}

// CreateVolume creates a volume of sizeGB gigabytes.
func (s *ScopedSession) CreateVolume(ctx context.Context, name string, sizeGB int) (cloud.Volume, error) {
	return do(ctx, s.log, "create_volume", func() (cloud.Volume, error) {
		s.log.Info("Creating volume", "volume", name, "size", sizeGB)
		bs, err := s.conn.BlockStore()
		if err != nil {
			return cloud.Volume{}, err
		}
		v, err := bs.CreateVolume(ctx, cloudapi.VolumeCreateOpts{Name: name, Size: sizeGB})
		if err != nil {
			return cloud.Volume{}, err
		}
		return s.findVolume(ctx, v.ID)
	})
}

// DeleteVolume deletes an AVAILABLE or ERROR volume. It returns the
// refetched volume while deletion is in progress, or nil once it is gone.
func (s *ScopedSession) DeleteVolume(ctx context.Context, ref cloud.Ref[cloud.Volume]) (*cloud.Volume, error) {
	return do(ctx, s.log, "delete_volume", func() (*cloud.Volume, error) {
		volume, err := s.resolveVolume(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !slices.Contains([]cloud.VolumeStatus{cloud.VolumeStatusAvailable, cloud.VolumeStatusError}, volume.Status) {
			return nil, cloud.InvalidOperationError("Cannot delete volume with status %s.", volume.Status)
		}
		s.log.Info("Deleting volume", "volume", volume.ID)
		bs, err := s.conn.BlockStore()
		if err != nil {
			return nil, err
		}
		if err := bs.DeleteVolume(ctx, volume.ID); err != nil {
			return nil, err
		}
		return refetch(s.findVolume(ctx, volume.ID))
	})
}

// AttachVolume attaches a volume to a machine. Attaching a volume to the
// machine it is already attached to is a no-op.
func (s *ScopedSession) AttachVolume(ctx context.Context, ref cloud.Ref[cloud.Volume], machine cloud.Ref[cloud.Machine]) (cloud.Volume, error) {
	return do(ctx, s.log, "attach_volume", func() (cloud.Volume, error) {
		volume, err := s.resolveVolume(ctx, ref)
		if err != nil {
			return cloud.Volume{}, err
		}
		if volume.AttachedMachineID != "" && volume.AttachedMachineID == machine.ID() {
			return volume, nil
		}
		if volume.Status != cloud.VolumeStatusAvailable {
			return cloud.Volume{}, cloud.InvalidOperationError("Volume must be AVAILABLE before attaching.")
		}
		s.log.Info("Attaching volume", "volume", volume.ID, "machine", machine.ID())
		compute, err := s.conn.Compute()
		if err != nil {
			return cloud.Volume{}, err
		}
		if _, err := compute.AttachVolume(ctx, machine.ID(), volume.ID); err != nil {
			return cloud.Volume{}, err
		}
		return s.findVolume(ctx, volume.ID, cloudapi.Force())
	})
}

// DetachVolume detaches a volume from its machine. Detaching a volume that
// is not attached is a no-op.
func (s *ScopedSession) DetachVolume(ctx context.Context, ref cloud.Ref[cloud.Volume]) (cloud.Volume, error) {
	return do(ctx, s.log, "detach_volume", func() (cloud.Volume, error) {
		volume, err := s.resolveVolume(ctx, ref)
		if err != nil {
			return cloud.Volume{}, err
		}
		if volume.AttachedMachineID == "" {
			return volume, nil
		}
		s.log.Info("Detaching volume", "volume", volume.ID, "machine", volume.AttachedMachineID)
		compute, err := s.conn.Compute()
		if err != nil {
			return cloud.Volume{}, err
		}
		attachments, err := compute.VolumeAttachments(ctx, volume.AttachedMachineID)
		if err != nil {
			return cloud.Volume{}, err
		}
		idx := slices.IndexFunc(attachments, func(a cloudapi.VolumeAttachment) bool { return a.VolumeID == volume.ID })
		if idx < 0 {
			return cloud.Volume{}, cloud.ObjectNotFoundError("Volume attachment for %s could not be found.", volume.ID)
		}
		if err := compute.DetachVolume(ctx, volume.AttachedMachineID, attachments[idx].ID); err != nil {
			return cloud.Volume{}, err
		}
		return s.findVolume(ctx, volume.ID, cloudapi.Force())
	})
}
