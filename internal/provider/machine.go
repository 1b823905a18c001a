package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/labels"
)

// zoneUnspecified is the default zone, which must not be requested explicitly.
const zoneUnspecified = "nova"

// MachineCreateRequest holds the parameters of CreateMachine.
type MachineCreateRequest struct {
	Name  string
	Image cloud.Ref[cloud.Image]
	Size  cloud.Ref[cloud.Size]
	// SSHKey is an authorized_keys line injected through a keypair, if set.
	SSHKey string
	// Metadata is stored on the machine under the metadata prefix.
	Metadata map[string]any
	// UserData is a cloud-init payload, sent base64 encoded.
	UserData string
}

// Machines lists the machines of the tenancy.
func (s *ScopedSession) Machines(ctx context.Context) ([]cloud.Machine, error) {
	return do(ctx, s.log, "machines", func() ([]cloud.Machine, error) {
		s.log.Info("Fetching available servers")
		compute, err := s.conn.Compute()
		if err != nil {
			return nil, err
		}
		servers, err := compute.Servers(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Info("Found servers", "count", len(servers))
		if len(servers) == 0 {
			return []cloud.Machine{}, nil
		}
		tenant, err := s.tenantNetwork(ctx, false)
		if err != nil {
			return nil, err
		}
		machines := make([]cloud.Machine, 0, len(servers))
		for _, srv := range servers {
			machines = append(machines, s.toMachine(srv, tenant))
		}
		return machines, nil
	})
}

// FindMachine returns one machine.
func (s *ScopedSession) FindMachine(ctx context.Context, id string) (cloud.Machine, error) {
	return do(ctx, s.log, "find_machine", func() (cloud.Machine, error) {
		return s.findMachine(ctx, id)
	})
}

func (s *ScopedSession) findMachine(ctx context.Context, id string) (cloud.Machine, error) {
	s.log.Info("Fetching server", "machine", id)
	compute, err := s.conn.Compute()
	if err != nil {
		return cloud.Machine{}, err
	}
	srv, err := compute.Server(ctx, id)
	if err != nil {
		return cloud.Machine{}, err
	}
	// The tenant network is only resolved once the server is known to exist.
	tenant, err := s.tenantNetwork(ctx, false)
	if err != nil {
		return cloud.Machine{}, err
	}
	return s.toMachine(srv, tenant), nil
}

// MachineLogs returns the console log of a machine, split into lines.
func (s *ScopedSession) MachineLogs(ctx context.Context, machine cloud.Ref[cloud.Machine]) ([]string, error) {
	return do(ctx, s.log, "machine_logs", func() ([]string, error) {
		s.log.Info("Fetching logs for machine", "machine", machine.ID())
		compute, err := s.conn.Compute()
		if err != nil {
			return nil, err
		}
		log, err := compute.ConsoleLog(ctx, machine.ID())
		if err != nil {
			return nil, err
		}
		return splitLines(log), nil
	})
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return []string{}
	}
	return strings.Split(text, "\n")
}

// CreateMachine provisions a machine and returns its authoritative state.
func (s *ScopedSession) CreateMachine(ctx context.Context, req MachineCreateRequest) (cloud.Machine, error) {
	return do(ctx, s.log, "create_machine", func() (cloud.Machine, error) {
		return s.createMachine(ctx, req)
	})
}

func (s *ScopedSession) createMachine(ctx context.Context, req MachineCreateRequest) (cloud.Machine, error) {
	image, ok := req.Image.Value()
	if !ok {
		var err error
		image, err = s.findImage(ctx, req.Image.ID())
		if cloudapi.IsNotFound(err) {
			return cloud.Machine{}, cloud.WrapError(cloud.KindBadInput, err, "Invalid image provided.")
		}
		if err != nil {
			return cloud.Machine{}, err
		}
	}
	opts := cloudapi.ServerCreateOpts{
		Name:     req.Name,
		ImageID:  image.ID,
		FlavorID: req.Size.ID(),
	}
	s.log.Info("Creating machine", "machine", req.Name, "image", image.Name, "size", opts.FlavorID)

	// Checked before any network is touched so a misconfiguration leaves nothing behind.
	wantsBackdoor := labels.Truthy(image.Metadata[labels.MetaPrivateIf])
	if wantsBackdoor && len(s.settings.backdoorNetworks) == 0 {
		return cloud.Machine{}, cloud.ImproperlyConfiguredError("Backdoor network required by image but not configured.")
	}

	tenant, err := s.tenantNetwork(ctx, true)
	if err != nil {
		return cloud.Machine{}, err
	}
	opts.Networks = []cloudapi.ServerNetwork{{NetworkID: tenant.ID}}

	if wantsBackdoor {
		zone, backdoor := s.pickZone()
		if zone != zoneUnspecified {
			opts.AvailabilityZone = zone
		}
		ns, err := s.conn.Network()
		if err != nil {
			return cloud.Machine{}, err
		}
		s.log.Info("Creating backdoor port", "zone", zone, "network", backdoor)
		port, err := ns.CreatePort(ctx, cloudapi.PortCreateOpts{
			NetworkID: backdoor,
			VNICType:  s.settings.backdoorVNICType,
		})
		if err != nil {
			return cloud.Machine{}, err
		}
		opts.Networks = append(opts.Networks, cloudapi.ServerNetwork{PortID: port.ID})
	}

	if req.SSHKey != "" {
		kp, err := s.keypair(ctx, req.SSHKey)
		if err != nil {
			return cloud.Machine{}, err
		}
		opts.KeyName = kp.Name
	}

	opts.Metadata = s.machineMetadata(image, req.Metadata)
	if req.UserData != "" {
		opts.UserData = base64.StdEncoding.EncodeToString([]byte(req.UserData))
	}

	compute, err := s.conn.Compute()
	if err != nil {
		return cloud.Machine{}, err
	}
	srv, err := compute.CreateServer(ctx, opts)
	if err != nil {
		return cloud.Machine{}, err
	}
	return s.findMachine(ctx, srv.ID)
}

// pickZone chooses a zone and its backdoor network at random. Zones are
// sorted first so a seeded source gives a stable choice.
func (s *ScopedSession) pickZone() (zone, network string) {
	zones := slices.Sorted(maps.Keys(s.settings.backdoorNetworks))
	zone = zones[s.settings.intN(len(zones))]
	return zone, s.settings.backdoorNetworks[zone]
}

// machineMetadata merges the tenancy marker, the image metadata and the
// caller metadata, later entries winning, and prefixes every key.
func (s *ScopedSession) machineMetadata(image cloud.Image, extra map[string]any) map[string]string {
	merged := map[string]string{labels.MetaTenantName: s.tenancy.Name}
	maps.Copy(merged, image.Metadata)
	for k, v := range extra {
		merged[k] = fmt.Sprint(v)
	}
	return labels.Prefixed(s.settings.metadataPrefix, merged)
}

// StartMachine powers a machine on.
func (s *ScopedSession) StartMachine(ctx context.Context, machine cloud.Ref[cloud.Machine]) (cloud.Machine, error) {
	return do(ctx, s.log, "start_machine", func() (cloud.Machine, error) {
		s.log.Info("Starting machine", "machine", machine.ID())
		return s.machineAction(ctx, machine.ID(), cloudapi.ComputeService.StartServer)
	})
}

// StopMachine powers a machine off.
func (s *ScopedSession) StopMachine(ctx context.Context, machine cloud.Ref[cloud.Machine]) (cloud.Machine, error) {
	return do(ctx, s.log, "stop_machine", func() (cloud.Machine, error) {
		s.log.Info("Stopping machine", "machine", machine.ID())
		return s.machineAction(ctx, machine.ID(), cloudapi.ComputeService.StopServer)
	})
}

// RestartMachine soft-reboots a machine.
func (s *ScopedSession) RestartMachine(ctx context.Context, machine cloud.Ref[cloud.Machine]) (cloud.Machine, error) {
	return do(ctx, s.log, "restart_machine", func() (cloud.Machine, error) {
		s.log.Info("Restarting machine", "machine", machine.ID())
		return s.machineAction(ctx, machine.ID(), func(c cloudapi.ComputeService, ctx context.Context, id string) error {
			return c.RebootServer(ctx, id, cloudapi.RebootSoft)
		})
	})
}

func (s *ScopedSession) machineAction(
	ctx context.Context,
	id string,
	action func(cloudapi.ComputeService, context.Context, string) error,
) (cloud.Machine, error) {
	compute, err := s.conn.Compute()
	if err != nil {
		return cloud.Machine{}, err
	}
	if err := action(compute, ctx, id); err != nil {
		return cloud.Machine{}, err
	}
	return s.findMachine(ctx, id)
}

// DeleteMachine deletes a machine and its ports. It returns the refetched
// machine while deletion is in progress, or nil once it is gone.
func (s *ScopedSession) DeleteMachine(ctx context.Context, machine cloud.Ref[cloud.Machine]) (*cloud.Machine, error) {
	return do(ctx, s.log, "delete_machine", func() (*cloud.Machine, error) {
		id := machine.ID()
		s.log.Info("Deleting machine", "machine", id)
		ns, err := s.conn.Network()
		if err != nil {
			return nil, err
		}
		ports, err := ns.Ports(ctx, cloudapi.PortListOpts{DeviceID: id})
		if err != nil {
			return nil, err
		}
		for _, p := range ports {
			if err := ns.DeletePort(ctx, p.ID); err != nil {
				return nil, err
			}
		}
		compute, err := s.conn.Compute()
		if err != nil {
			return nil, err
		}
		if err := compute.DeleteServer(ctx, id); err != nil {
			return nil, err
		}
		return refetch(s.findMachine(ctx, id))
	})
}

// refetch turns a post-delete lookup into the delete result: the record
// while it is still visible, nil once the lookup reports it gone.
func refetch[T any](v T, err error) (*T, error) {
	if cloudapi.IsNotFound(err) || errors.Is(err, cloud.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
