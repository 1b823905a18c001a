package memory

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

type compute struct {
	s *scoped
}

func (c *Cloud) findServer(st *projectState, id string) (*cloudapi.Server, error) {
	for _, s := range st.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, cloudapi.NotFound("Instance %s could not be found.", id)
}

func (c *Cloud) findFlavor(id string) (cloudapi.Flavor, error) {
	for _, f := range c.flavors {
		if f.ID == id {
			return f, nil
		}
	}
	return cloudapi.Flavor{}, cloudapi.NotFound("Flavor %s could not be found.", id)
}

func (c *Cloud) networkByID(id string) *cloudapi.Network {
	for _, st := range c.state {
		for _, n := range st.networks {
			if n.ID == id {
				return n
			}
		}
	}
	return nil
}

// serverView renders a server with addresses and volumes derived from ports,
// floating IPs and attachments.
func (c *Cloud) serverView(st *projectState, s *cloudapi.Server) cloudapi.Server {
	out := *s
	out.Metadata = maps.Clone(s.Metadata)
	out.Addresses = make(map[string][]cloudapi.Address)
	for name, addrs := range s.Addresses {
		out.Addresses[name] = slices.Clone(addrs)
	}
	for _, p := range st.ports {
		if p.DeviceID != s.ID {
			continue
		}
		name := p.NetworkID
		if n := c.networkByID(p.NetworkID); n != nil {
			name = n.Name
		}
		out.Addresses[name] = append(out.Addresses[name], cloudapi.Address{Addr: p.fixedIP, Version: 4, Type: "fixed"})
		for _, f := range st.fips {
			if f.PortID == p.ID {
				out.Addresses[name] = append(out.Addresses[name], cloudapi.Address{Addr: f.FloatingIPAddress, Version: 4, Type: "floating"})
			}
		}
	}
	out.AttachedVolumes = slices.Clone(s.AttachedVolumes)
	for _, v := range st.volumes {
		for _, a := range v.Attachments {
			if a.ServerID == s.ID && !slices.Contains(out.AttachedVolumes, v.ID) {
				out.AttachedVolumes = append(out.AttachedVolumes, v.ID)
			}
		}
	}
	return out
}

func (cs *compute) Limits(ctx context.Context) (cloudapi.ComputeLimits, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.Limits"); err != nil {
		return cloudapi.ComputeLimits{}, err
	}
	return cs.s.state().computeLimits, nil
}

func (cs *compute) Flavors(ctx context.Context) ([]cloudapi.Flavor, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.Flavors"); err != nil {
		return nil, err
	}
	return slices.Clone(c.flavors), nil
}

func (cs *compute) Flavor(ctx context.Context, id string) (cloudapi.Flavor, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.Flavor"); err != nil {
		return cloudapi.Flavor{}, err
	}
	return c.findFlavor(id)
}

func (cs *compute) Servers(ctx context.Context) ([]cloudapi.Server, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.Servers"); err != nil {
		return nil, err
	}
	st := cs.s.state()
	out := make([]cloudapi.Server, 0, len(st.servers))
	for _, s := range st.servers {
		out = append(out, c.serverView(st, s))
	}
	return out, nil
}

func (cs *compute) Server(ctx context.Context, id string) (cloudapi.Server, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.Server"); err != nil {
		return cloudapi.Server{}, err
	}
	st := cs.s.state()
	s, err := c.findServer(st, id)
	if err != nil {
		return cloudapi.Server{}, err
	}
	return c.serverView(st, s), nil
}

func (cs *compute) CreateServer(ctx context.Context, opts cloudapi.ServerCreateOpts) (cloudapi.Server, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.CreateServer"); err != nil {
		return cloudapi.Server{}, err
	}
	if opts.Name == "" {
		return cloudapi.Server{}, cloudapi.NewError(http.StatusBadRequest, "Invalid input for field/attribute name.")
	}
	if !slices.ContainsFunc(c.images, func(i cloudapi.Image) bool { return i.ID == opts.ImageID }) {
		return cloudapi.Server{}, cloudapi.NewError(http.StatusBadRequest, "Image %s could not be found.", opts.ImageID)
	}
	if _, err := c.findFlavor(opts.FlavorID); err != nil {
		return cloudapi.Server{}, cloudapi.NewError(http.StatusBadRequest, "Invalid flavorRef provided.")
	}
	if opts.KeyName != "" && !slices.ContainsFunc(c.keypairs[cs.s.user.id], func(k cloudapi.Keypair) bool { return k.Name == opts.KeyName }) {
		return cloudapi.Server{}, cloudapi.NewError(http.StatusBadRequest, "Invalid key_name provided.")
	}
	st := cs.s.state()
	s := &cloudapi.Server{
		ID:         uuid.NewString(),
		Name:       opts.Name,
		ImageID:    opts.ImageID,
		FlavorID:   opts.FlavorID,
		Status:     "BUILD",
		PowerState: 0,
		TaskState:  "spawning",
		Metadata:   maps.Clone(opts.Metadata),
		UserID:     cs.s.user.id,
		KeyName:    opts.KeyName,
		Zone:       opts.AvailabilityZone,
		Created:    c.now(),
	}
	for _, n := range opts.Networks {
		switch {
		case n.PortID != "":
			p := findPort(st, n.PortID)
			if p == nil {
				return cloudapi.Server{}, cloudapi.NotFound("Port %s could not be found.", n.PortID)
			}
			p.DeviceID = s.ID
		case n.NetworkID != "":
			if c.networkByID(n.NetworkID) == nil {
				return cloudapi.Server{}, cloudapi.NotFound("Network %s could not be found.", n.NetworkID)
			}
			st.ports = append(st.ports, &port{
				Port:    cloudapi.Port{ID: uuid.NewString(), NetworkID: n.NetworkID, DeviceID: s.ID},
				fixedIP: c.nextAddress("10.0"),
			})
		}
	}
	if opts.UserData != "" {
		c.userData[s.ID] = opts.UserData
	}
	st.servers = append(st.servers, s)
	return c.serverView(st, s), nil
}

func (cs *compute) DeleteServer(ctx context.Context, id string) error {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.DeleteServer"); err != nil {
		return err
	}
	st := cs.s.state()
	if _, err := c.findServer(st, id); err != nil {
		return err
	}
	st.servers = slices.DeleteFunc(st.servers, func(s *cloudapi.Server) bool { return s.ID == id })
	for _, v := range st.volumes {
		v.Attachments = slices.DeleteFunc(v.Attachments, func(a cloudapi.VolumeAttachment) bool { return a.ServerID == id })
		if len(v.Attachments) == 0 && v.Status == "in-use" {
			v.Status = "available"
		}
	}
	return nil
}

func (cs *compute) setState(ctx context.Context, op, id, status string, power int) error {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, op); err != nil {
		return err
	}
	s, err := c.findServer(cs.s.state(), id)
	if err != nil {
		return err
	}
	s.Status = status
	s.PowerState = power
	s.TaskState = ""
	return nil
}

func (cs *compute) StartServer(ctx context.Context, id string) error {
	return cs.setState(ctx, "compute.StartServer", id, "ACTIVE", 1)
}

func (cs *compute) StopServer(ctx context.Context, id string) error {
	return cs.setState(ctx, "compute.StopServer", id, "SHUTOFF", 4)
}

func (cs *compute) RebootServer(ctx context.Context, id string, rebootType cloudapi.RebootType) error {
	return cs.setState(ctx, "compute.RebootServer:"+string(rebootType), id, "ACTIVE", 1)
}

func (cs *compute) ConsoleLog(ctx context.Context, id string) (string, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.ConsoleLog"); err != nil {
		return "", err
	}
	if _, err := c.findServer(cs.s.state(), id); err != nil {
		return "", err
	}
	return c.consoleLogs[id], nil
}

func (cs *compute) Keypair(ctx context.Context, name string, opts ...cloudapi.GetOption) (cloudapi.Keypair, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	op := "compute.Keypair"
	if cloudapi.ApplyGetOptions(opts...).Force {
		op += ":force"
	}
	if err := c.begin(ctx, op); err != nil {
		return cloudapi.Keypair{}, err
	}
	for _, kp := range c.keypairs[cs.s.user.id] {
		if kp.Name == name {
			return kp, nil
		}
	}
	return cloudapi.Keypair{}, cloudapi.NotFound("Keypair %s not found for user %s", name, cs.s.user.id)
}

func (cs *compute) CreateKeypair(ctx context.Context, name, publicKey string) (cloudapi.Keypair, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.CreateKeypair"); err != nil {
		return cloudapi.Keypair{}, err
	}
	for _, kp := range c.keypairs[cs.s.user.id] {
		if kp.Name == name {
			return cloudapi.Keypair{}, cloudapi.NewError(http.StatusConflict, "Key pair '%s' already exists.", name)
		}
	}
	kp := cloudapi.Keypair{Name: name, PublicKey: publicKey}
	c.keypairs[cs.s.user.id] = append(c.keypairs[cs.s.user.id], kp)
	return kp, nil
}

func (cs *compute) DeleteKeypair(ctx context.Context, name string) error {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.DeleteKeypair"); err != nil {
		return err
	}
	kps := c.keypairs[cs.s.user.id]
	idx := slices.IndexFunc(kps, func(k cloudapi.Keypair) bool { return k.Name == name })
	if idx < 0 {
		return cloudapi.NotFound("Keypair %s not found for user %s", name, cs.s.user.id)
	}
	c.keypairs[cs.s.user.id] = slices.Delete(kps, idx, idx+1)
	return nil
}

func (cs *compute) VolumeAttachments(ctx context.Context, serverID string) ([]cloudapi.VolumeAttachment, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.VolumeAttachments"); err != nil {
		return nil, err
	}
	st := cs.s.state()
	if _, err := c.findServer(st, serverID); err != nil {
		return nil, err
	}
	var out []cloudapi.VolumeAttachment
	for _, v := range st.volumes {
		for _, a := range v.Attachments {
			if a.ServerID == serverID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (cs *compute) AttachVolume(ctx context.Context, serverID, volumeID string) (cloudapi.VolumeAttachment, error) {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.AttachVolume"); err != nil {
		return cloudapi.VolumeAttachment{}, err
	}
	st := cs.s.state()
	if _, err := c.findServer(st, serverID); err != nil {
		return cloudapi.VolumeAttachment{}, err
	}
	v := findVolume(st, volumeID)
	if v == nil {
		return cloudapi.VolumeAttachment{}, cloudapi.NotFound("Volume %s could not be found.", volumeID)
	}
	if v.Status != "available" {
		return cloudapi.VolumeAttachment{}, cloudapi.NewError(http.StatusBadRequest, "Invalid volume: volume %s status must be available", volumeID)
	}
	a := cloudapi.VolumeAttachment{
		ID:       uuid.NewString(),
		ServerID: serverID,
		VolumeID: volumeID,
		Device:   fmt.Sprintf("/dev/vd%c", 'b'+rune(countAttachments(st, serverID))),
	}
	v.Attachments = append(v.Attachments, a)
	v.Status = "in-use"
	return a, nil
}

func (cs *compute) DetachVolume(ctx context.Context, serverID, attachmentID string) error {
	c := cs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "compute.DetachVolume"); err != nil {
		return err
	}
	st := cs.s.state()
	for _, v := range st.volumes {
		idx := slices.IndexFunc(v.Attachments, func(a cloudapi.VolumeAttachment) bool {
			return a.ID == attachmentID && a.ServerID == serverID
		})
		if idx >= 0 {
			v.Attachments = slices.Delete(v.Attachments, idx, idx+1)
			if len(v.Attachments) == 0 {
				v.Status = "available"
			}
			return nil
		}
	}
	return cloudapi.NotFound("Volume attachment %s could not be found.", attachmentID)
}

func countAttachments(st *projectState, serverID string) int {
	n := 0
	for _, v := range st.volumes {
		for _, a := range v.Attachments {
			if a.ServerID == serverID {
				n++
			}
		}
	}
	return n
}
