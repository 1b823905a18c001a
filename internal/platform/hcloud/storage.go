package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

type storageService scoped

var _ cloudapi.BlockStoreService = (*storageService)(nil)

func (s *scoped) storage() *storageService { return (*storageService)(s) }

// Limits reports unlimited quotas with the usage of the project's volumes.
func (st *storageService) Limits(ctx context.Context) (cloudapi.BlockStoreLimits, error) {
	volumes, err := st.client.Volume.All(ctx)
	if err != nil {
		return cloudapi.BlockStoreLimits{}, apiError("list volumes", err)
	}
	limits := cloudapi.BlockStoreLimits{MaxTotalVolumeGigabytes: -1, MaxTotalVolumes: -1}
	for _, v := range volumes {
		limits.TotalVolumesUsed++
		limits.TotalGigabytesUsed += v.Size
	}
	return limits, nil
}

func (st *storageService) Volumes(ctx context.Context) ([]cloudapi.Volume, error) {
	all, err := st.client.Volume.All(ctx)
	if err != nil {
		return nil, apiError("list volumes", err)
	}
	volumes := make([]cloudapi.Volume, 0, len(all))
	for _, v := range all {
		vol := toVolume(v)
		st.cache.putVolume(vol)
		volumes = append(volumes, vol)
	}
	return volumes, nil
}

// Volume returns a volume, from the read cache unless forced.
func (st *storageService) Volume(ctx context.Context, id string, opts ...cloudapi.GetOption) (cloudapi.Volume, error) {
	if !cloudapi.ApplyGetOptions(opts...).Force {
		if v, ok := st.cache.volume(id); ok {
			return v, nil
		}
	}
	v, err := st.volume(ctx, id)
	if err != nil {
		return cloudapi.Volume{}, err
	}
	vol := toVolume(v)
	st.cache.putVolume(vol)
	return vol, nil
}

func (st *storageService) volume(ctx context.Context, id string) (*hcloud.Volume, error) {
	n, err := parseID("Volume", id)
	if err != nil {
		return nil, err
	}
	v, _, err := st.client.Volume.GetByID(ctx, n)
	if err != nil {
		return nil, apiError("get volume", err)
	}
	if v == nil {
		return nil, notFound("Volume", id)
	}
	return v, nil
}

// CreateVolume creates an unformatted volume in the configured location.
func (st *storageService) CreateVolume(ctx context.Context, opts cloudapi.VolumeCreateOpts) (cloudapi.Volume, error) {
	if st.backend.location == "" {
		return cloudapi.Volume{}, badRequest("No location configured for volumes.")
	}
	result, _, err := st.client.Volume.Create(ctx, hcloud.VolumeCreateOpts{
		Name:     opts.Name,
		Size:     opts.Size,
		Location: &hcloud.Location{Name: st.backend.location},
	})
	if err != nil {
		return cloudapi.Volume{}, apiError("create volume", err)
	}
	if err := (*scoped)(st).waitFor(ctx, "create volume", append([]*hcloud.Action{result.Action}, result.NextActions...)...); err != nil {
		return cloudapi.Volume{}, err
	}
	return st.Volume(ctx, formatID(result.Volume.ID), cloudapi.Force())
}

func (st *storageService) DeleteVolume(ctx context.Context, id string) error {
	v, err := st.volume(ctx, id)
	if err != nil {
		return err
	}
	st.cache.forgetVolume(id)
	if _, err := st.client.Volume.Delete(ctx, v); err != nil {
		return apiError("delete volume", err)
	}
	return nil
}
