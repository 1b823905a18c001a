package hcloud

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
	"github.com/imamik/cloudbroker/internal/util/async"
)

type computeService scoped

var _ cloudapi.ComputeService = (*computeService)(nil)

func (c *computeService) scoped() *scoped { return (*scoped)(c) }

// Limits reports unlimited quotas with the usage of the project's servers.
func (c *computeService) Limits(ctx context.Context) (cloudapi.ComputeLimits, error) {
	servers, err := c.client.Server.All(ctx)
	if err != nil {
		return cloudapi.ComputeLimits{}, apiError("list servers", err)
	}
	limits := cloudapi.ComputeLimits{MaxTotalCores: -1, MaxTotalRAMSize: -1, MaxTotalInstances: -1}
	for _, srv := range servers {
		limits.TotalInstancesUsed++
		if srv.ServerType != nil {
			limits.TotalCoresUsed += srv.ServerType.Cores
			limits.TotalRAMUsed += int(srv.ServerType.Memory * 1024)
		}
	}
	return limits, nil
}

func (c *computeService) Flavors(ctx context.Context) ([]cloudapi.Flavor, error) {
	types, err := c.client.ServerType.All(ctx)
	if err != nil {
		return nil, apiError("list server types", err)
	}
	flavors := make([]cloudapi.Flavor, 0, len(types))
	for _, st := range types {
		flavors = append(flavors, toFlavor(st))
	}
	return flavors, nil
}

func (c *computeService) Flavor(ctx context.Context, id string) (cloudapi.Flavor, error) {
	st, err := c.serverType(ctx, id)
	if err != nil {
		return cloudapi.Flavor{}, err
	}
	return toFlavor(st), nil
}

func (c *computeService) serverType(ctx context.Context, id string) (*hcloud.ServerType, error) {
	n, err := parseID("Flavor", id)
	if err != nil {
		return nil, err
	}
	st, _, err := c.client.ServerType.GetByID(ctx, n)
	if err != nil {
		return nil, apiError("get server type", err)
	}
	if st == nil {
		return nil, notFound("Flavor", id)
	}
	return st, nil
}

// index fetches the networks and floating IPs server records refer to.
func (c *computeService) index(ctx context.Context) (serverIndex, error) {
	var (
		networks []*hcloud.Network
		fips     []*hcloud.FloatingIP
	)
	err := async.Run(ctx,
		func(ctx context.Context) (err error) {
			networks, err = c.client.Network.All(ctx)
			return apiError("list networks", err)
		},
		func(ctx context.Context) (err error) {
			fips, err = c.client.FloatingIP.All(ctx)
			return apiError("list floating IPs", err)
		},
	)
	if err != nil {
		return serverIndex{}, err
	}
	return newServerIndex(networks, fips), nil
}

func (c *computeService) Servers(ctx context.Context) ([]cloudapi.Server, error) {
	all, err := c.client.Server.All(ctx)
	if err != nil {
		return nil, apiError("list servers", err)
	}
	idx, err := c.index(ctx)
	if err != nil {
		return nil, err
	}
	servers := make([]cloudapi.Server, 0, len(all))
	for _, srv := range all {
		servers = append(servers, c.backend.toServer(srv, idx))
	}
	return servers, nil
}

func (c *computeService) Server(ctx context.Context, id string) (cloudapi.Server, error) {
	srv, err := c.server(ctx, id)
	if err != nil {
		return cloudapi.Server{}, err
	}
	idx, err := c.index(ctx)
	if err != nil {
		return cloudapi.Server{}, err
	}
	return c.backend.toServer(srv, idx), nil
}

func (c *computeService) server(ctx context.Context, id string) (*hcloud.Server, error) {
	n, err := parseID("Instance", id)
	if err != nil {
		return nil, err
	}
	srv, _, err := c.client.Server.GetByID(ctx, n)
	if err != nil {
		return nil, apiError("get server", err)
	}
	if srv == nil {
		return nil, notFound("Instance", id)
	}
	return srv, nil
}

// CreateServer creates a server and waits until it is provisioned. Only
// private networks can be requested; standalone ports do not exist.
func (c *computeService) CreateServer(ctx context.Context, opts cloudapi.ServerCreateOpts) (cloudapi.Server, error) {
	flavorID, err := parseID("Flavor", opts.FlavorID)
	if err != nil {
		return cloudapi.Server{}, badRequest("Invalid flavorRef provided.")
	}
	imageID, err := parseID("Image", opts.ImageID)
	if err != nil {
		return cloudapi.Server{}, badRequest("Invalid imageRef provided.")
	}
	create := hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: &hcloud.ServerType{ID: flavorID},
		Image:      &hcloud.Image{ID: imageID},
		Labels:     make(map[string]string, len(opts.Metadata)+1),
	}
	for k, v := range opts.Metadata {
		create.Labels[k] = labelValue(v)
	}
	if opts.UserData != "" {
		userData, err := base64.StdEncoding.DecodeString(opts.UserData)
		if err != nil {
			return cloudapi.Server{}, badRequest("User data must be base64 encoded.")
		}
		create.UserData = string(userData)
	}
	if zone := opts.AvailabilityZone; zone != "" {
		create.Location = &hcloud.Location{Name: zone}
	} else if c.backend.location != "" {
		create.Location = &hcloud.Location{Name: c.backend.location}
	}
	for _, n := range opts.Networks {
		if n.PortID != "" {
			return cloudapi.Server{}, badRequest("Port %s cannot be attached at boot.", n.PortID)
		}
		id, err := parseID("Network", n.NetworkID)
		if err != nil {
			return cloudapi.Server{}, err
		}
		create.Networks = append(create.Networks, &hcloud.Network{ID: id})
	}
	if opts.KeyName != "" {
		key, _, err := c.client.SSHKey.GetByName(ctx, opts.KeyName)
		if err != nil {
			return cloudapi.Server{}, apiError("get ssh key", err)
		}
		if key == nil {
			return cloudapi.Server{}, badRequest("Invalid key_name provided.")
		}
		create.SSHKeys = []*hcloud.SSHKey{key}
		create.Labels[labelKeypair] = key.Name
	}

	result, _, err := c.client.Server.Create(ctx, create)
	if err != nil {
		return cloudapi.Server{}, apiError("create server", err)
	}
	if err := c.scoped().waitFor(ctx, "create server", append([]*hcloud.Action{result.Action}, result.NextActions...)...); err != nil {
		return cloudapi.Server{}, err
	}
	return c.Server(ctx, formatID(result.Server.ID))
}

func (c *computeService) DeleteServer(ctx context.Context, id string) error {
	srv, err := c.server(ctx, id)
	if err != nil {
		return err
	}
	result, _, err := c.client.Server.DeleteWithResult(ctx, srv)
	if err != nil {
		return apiError("delete server", err)
	}
	return c.scoped().waitFor(ctx, "delete server", result.Action)
}

// power runs a power action without waiting for it; callers refetch.
func (c *computeService) power(ctx context.Context, op, id string, action func(context.Context, *hcloud.Server) (*hcloud.Action, *hcloud.Response, error)) error {
	srv, err := c.server(ctx, id)
	if err != nil {
		return err
	}
	if _, _, err := action(ctx, srv); err != nil {
		return apiError(op, err)
	}
	return nil
}

func (c *computeService) StartServer(ctx context.Context, id string) error {
	return c.power(ctx, "power on server", id, c.client.Server.Poweron)
}

func (c *computeService) StopServer(ctx context.Context, id string) error {
	return c.power(ctx, "power off server", id, c.client.Server.Poweroff)
}

func (c *computeService) RebootServer(ctx context.Context, id string, rebootType cloudapi.RebootType) error {
	switch rebootType {
	case cloudapi.RebootSoft:
		return c.power(ctx, "reboot server", id, c.client.Server.Reboot)
	case cloudapi.RebootHard:
		return c.power(ctx, "reset server", id, c.client.Server.Reset)
	default:
		return badRequest("Invalid reboot type %s.", rebootType)
	}
}

// ConsoleLog is empty; the API only offers interactive consoles.
func (c *computeService) ConsoleLog(ctx context.Context, id string) (string, error) {
	if _, err := c.server(ctx, id); err != nil {
		return "", err
	}
	return "", nil
}

func (c *computeService) Keypair(ctx context.Context, name string, opts ...cloudapi.GetOption) (cloudapi.Keypair, error) {
	if !cloudapi.ApplyGetOptions(opts...).Force {
		if kp, ok := c.cache.keypair(name); ok {
			return kp, nil
		}
	}
	key, _, err := c.client.SSHKey.GetByName(ctx, name)
	if err != nil {
		return cloudapi.Keypair{}, apiError("get ssh key", err)
	}
	if key == nil {
		return cloudapi.Keypair{}, notFound("Keypair", name)
	}
	kp := toKeypair(key)
	c.cache.putKeypair(kp)
	return kp, nil
}

func (c *computeService) CreateKeypair(ctx context.Context, name, publicKey string) (cloudapi.Keypair, error) {
	key, _, err := c.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{Name: name, PublicKey: publicKey})
	if err != nil {
		return cloudapi.Keypair{}, apiError("create ssh key", err)
	}
	kp := toKeypair(key)
	c.cache.putKeypair(kp)
	return kp, nil
}

func (c *computeService) DeleteKeypair(ctx context.Context, name string) error {
	c.cache.forgetKeypair(name)
	key, _, err := c.client.SSHKey.GetByName(ctx, name)
	if err != nil {
		return apiError("get ssh key", err)
	}
	if key == nil {
		return notFound("Keypair", name)
	}
	if _, err := c.client.SSHKey.Delete(ctx, key); err != nil {
		return apiError("delete ssh key", err)
	}
	return nil
}

func (c *computeService) VolumeAttachments(ctx context.Context, serverID string) ([]cloudapi.VolumeAttachment, error) {
	srv, err := c.server(ctx, serverID)
	if err != nil {
		return nil, err
	}
	attachments := make([]cloudapi.VolumeAttachment, 0, len(srv.Volumes))
	for _, ref := range srv.Volumes {
		v, err := c.scoped().storage().volume(ctx, formatID(ref.ID))
		if err != nil {
			return nil, err
		}
		if v.Server != nil {
			attachments = append(attachments, toAttachment(v))
		}
	}
	return attachments, nil
}

// AttachVolume attaches a volume and waits for the attachment.
func (c *computeService) AttachVolume(ctx context.Context, serverID, volumeID string) (cloudapi.VolumeAttachment, error) {
	srv, err := c.server(ctx, serverID)
	if err != nil {
		return cloudapi.VolumeAttachment{}, err
	}
	storage := c.scoped().storage()
	v, err := storage.volume(ctx, volumeID)
	if err != nil {
		return cloudapi.VolumeAttachment{}, err
	}
	if v.Server != nil {
		return cloudapi.VolumeAttachment{}, cloudapi.NewError(http.StatusBadRequest, "Volume %s is already attached.", volumeID)
	}
	c.cache.forgetVolume(volumeID)
	action, _, err := c.client.Volume.Attach(ctx, v, srv)
	if err != nil {
		return cloudapi.VolumeAttachment{}, apiError("attach volume", err)
	}
	if err := c.scoped().waitFor(ctx, "attach volume", action); err != nil {
		return cloudapi.VolumeAttachment{}, err
	}
	attached, err := storage.volume(ctx, volumeID)
	if err != nil {
		return cloudapi.VolumeAttachment{}, err
	}
	if attached.Server == nil {
		attached.Server = srv
	}
	return toAttachment(attached), nil
}

// DetachVolume detaches the volume of an attachment. Attachment ids are
// volume ids.
func (c *computeService) DetachVolume(ctx context.Context, serverID, attachmentID string) error {
	sid, err := parseID("Instance", serverID)
	if err != nil {
		return err
	}
	v, err := c.scoped().storage().volume(ctx, attachmentID)
	if err != nil {
		return err
	}
	if v.Server == nil || v.Server.ID != sid {
		return notFound("Volume attachment", attachmentID)
	}
	c.cache.forgetVolume(attachmentID)
	action, _, err := c.client.Volume.Detach(ctx, v)
	if err != nil {
		return apiError("detach volume", err)
	}
	return c.scoped().waitFor(ctx, "detach volume", action)
}
