package handlers

import (
	"context"
	"strconv"

	"github.com/imamik/cloudbroker/internal/cloud"
	"github.com/imamik/cloudbroker/internal/provider"
)

// Images lists the images machines can be created from.
func Images(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		images, err := session.Images(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(images, func() view { return imageView(images) })
	})
}

func imageView(images []cloud.Image) view {
	v := view{headers: []string{"ID", "NAME", "PUBLIC", "SIZE (MB)"}}
	for _, img := range images {
		v.rows = append(v.rows, []string{
			img.ID,
			img.Name,
			yesNo(img.IsPublic),
			strconv.FormatFloat(img.SizeMB, 'f', 0, 64),
		})
	}
	return v
}

// Sizes lists the machine sizes.
func Sizes(ctx context.Context, opts *Options) error {
	return withScoped(ctx, opts, func(env *environment, session *provider.ScopedSession) error {
		sizes, err := session.Sizes(ctx)
		if err != nil {
			return err
		}
		return env.printer.print(sizes, func() view { return sizeView(sizes) })
	})
}

func sizeView(sizes []cloud.Size) view {
	v := view{headers: []string{"ID", "NAME", "CPUS", "RAM (MB)", "DISK (GB)"}}
	for _, s := range sizes {
		v.rows = append(v.rows, []string{
			s.ID,
			s.Name,
			strconv.Itoa(s.CPUs),
			strconv.Itoa(s.RAMMB),
			strconv.Itoa(s.DiskGB),
		})
	}
	return v
}
