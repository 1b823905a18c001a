package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/cloudbroker/internal/platform/cloudapi"
)

type imageService scoped

var _ cloudapi.ImageService = (*imageService)(nil)

// Images lists system images and the project's snapshots.
func (is *imageService) Images(ctx context.Context) ([]cloudapi.Image, error) {
	all, err := is.client.Image.AllWithOpts(ctx, hcloud.ImageListOpts{
		Type:              []hcloud.ImageType{hcloud.ImageTypeSystem, hcloud.ImageTypeSnapshot},
		IncludeDeprecated: true,
	})
	if err != nil {
		return nil, apiError("list images", err)
	}
	images := make([]cloudapi.Image, 0, len(all))
	for _, img := range all {
		images = append(images, toImage(img))
	}
	return images, nil
}

func (is *imageService) Image(ctx context.Context, id string) (cloudapi.Image, error) {
	n, err := parseID("Image", id)
	if err != nil {
		return cloudapi.Image{}, err
	}
	img, _, err := is.client.Image.GetByID(ctx, n)
	if err != nil {
		return cloudapi.Image{}, apiError("get image", err)
	}
	if img == nil {
		return cloudapi.Image{}, notFound("Image", id)
	}
	return toImage(img), nil
}
