package memory

import (
	"context"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

type blockStore struct {
	s *scoped
}

func findVolume(st *projectState, id string) *cloudapi.Volume {
	for _, v := range st.volumes {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func volumeView(v *cloudapi.Volume) cloudapi.Volume {
	out := *v
	out.Attachments = slices.Clone(v.Attachments)
	return out
}

func (bs *blockStore) Limits(ctx context.Context) (cloudapi.BlockStoreLimits, error) {
	c := bs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "blockstore.Limits"); err != nil {
		return cloudapi.BlockStoreLimits{}, err
	}
	return bs.s.state().blockLimits, nil
}

func (bs *blockStore) Volumes(ctx context.Context) ([]cloudapi.Volume, error) {
	c := bs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "blockstore.Volumes"); err != nil {
		return nil, err
	}
	st := bs.s.state()
	out := make([]cloudapi.Volume, 0, len(st.volumes))
	for _, v := range st.volumes {
		out = append(out, volumeView(v))
	}
	return out, nil
}

func (bs *blockStore) Volume(ctx context.Context, id string, opts ...cloudapi.GetOption) (cloudapi.Volume, error) {
	c := bs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	op := "blockstore.Volume"
	if cloudapi.ApplyGetOptions(opts...).Force {
		op += ":force"
	}
	if err := c.begin(ctx, op); err != nil {
		return cloudapi.Volume{}, err
	}
	v := findVolume(bs.s.state(), id)
	if v == nil {
		return cloudapi.Volume{}, cloudapi.NotFound("Volume %s could not be found.", id)
	}
	return volumeView(v), nil
}

func (bs *blockStore) CreateVolume(ctx context.Context, opts cloudapi.VolumeCreateOpts) (cloudapi.Volume, error) {
	c := bs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "blockstore.CreateVolume"); err != nil {
		return cloudapi.Volume{}, err
	}
	if opts.Size <= 0 {
		return cloudapi.Volume{}, cloudapi.NewError(http.StatusBadRequest, "Invalid input received: size must be positive.")
	}
	st := bs.s.state()
	if limit := st.blockLimits.MaxTotalVolumeGigabytes; limit >= 0 {
		used := 0
		for _, v := range st.volumes {
			used += v.Size
		}
		if used+opts.Size > limit {
			return cloudapi.Volume{}, cloudapi.NewError(http.StatusRequestEntityTooLarge,
				"VolumeSizeExceedsAvailableQuota: Requested volume or snapshot exceeds allowed gigabytes quota.")
		}
	}
	v := &cloudapi.Volume{ID: uuid.NewString(), Name: opts.Name, Status: "available", Size: opts.Size}
	st.volumes = append(st.volumes, v)
	return volumeView(v), nil
}

func (bs *blockStore) DeleteVolume(ctx context.Context, id string) error {
	c := bs.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "blockstore.DeleteVolume"); err != nil {
		return err
	}
	st := bs.s.state()
	v := findVolume(st, id)
	if v == nil {
		return cloudapi.NotFound("Volume %s could not be found.", id)
	}
	if len(v.Attachments) > 0 {
		return cloudapi.NewError(http.StatusBadRequest, "Invalid volume: Volume status must be available or error.")
	}
	st.volumes = slices.DeleteFunc(st.volumes, func(v *cloudapi.Volume) bool { return v.ID == id })
	return nil
}

type images struct {
	s *scoped
}

func (is *images) Images(ctx context.Context) ([]cloudapi.Image, error) {
	c := is.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "image.Images"); err != nil {
		return nil, err
	}
	return slices.Clone(c.images), nil
}

func (is *images) Image(ctx context.Context, id string) (cloudapi.Image, error) {
	c := is.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "image.Image"); err != nil {
		return cloudapi.Image{}, err
	}
	for _, img := range c.images {
		if img.ID == id {
			return img, nil
		}
	}
	return cloudapi.Image{}, cloudapi.NotFound("No image found with ID %s", id)
}

type orchestration struct {
	s *scoped
}

func (o *orchestration) StackByName(ctx context.Context, name string) (cloudapi.Stack, error) {
	c := o.s.cloud
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "orchestration.StackByName"); err != nil {
		return cloudapi.Stack{}, err
	}
	for _, s := range o.s.state().stacks {
		if s.Name == name {
			return s, nil
		}
	}
	return cloudapi.Stack{}, cloudapi.NotFound("The Stack (%s) could not be found.", name)
}
