package async

import (
	"context"
)

// Run starts fns concurrently and waits until all have returned. It
// returns the first error to occur, unwrapped. Once one operation fails
// the context seen by the others is cancelled.
//
// Example:
//
//	var networks []*hcloud.Network
//	var ips []*hcloud.FloatingIP
//	err := async.Run(ctx,
//	    func(ctx context.Context) (err error) { networks, err = client.Network.All(ctx); return err },
//	    func(ctx context.Context) (err error) { ips, err = client.FloatingIP.All(ctx); return err },
//	)
func Run(ctx context.Context, fns ...func(context.Context) error) error {
	if len(fns) == 0 {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(fns))
	for _, fn := range fns {
		go func() {
			errs <- fn(ctx)
		}()
	}

	var first error
	for range len(fns) {
		if err := <-errs; err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}
