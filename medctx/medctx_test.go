package medctx

import (
	"sync"
	"testing"

	"github.com/MEDFormat/MEDC-sub000/config"
	"github.com/stretchr/testify/require"
)

func TestNew_UsesSuppliedOptions(t *testing.T) {
	opts := config.Defaults()
	opts.IndexJumpPadding = 7

	ctx := New(opts)
	require.Equal(t, 7, ctx.Options.IndexJumpPadding)
	require.NotNil(t, ctx.Metrics)
}

func TestReferenceChannel_RoundTrip(t *testing.T) {
	ctx := New(config.Defaults())
	ctx.SetReferenceChannel(ReferenceChannel{SessionUID: 42, ChannelName: "eeg1"})

	rc := ctx.ReferenceChannel()
	require.Equal(t, uint64(42), rc.SessionUID)
	require.Equal(t, "eeg1", rc.ChannelName)
}

func TestReferenceChannel_ConcurrentAccess(t *testing.T) {
	ctx := New(config.Defaults())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx.SetReferenceChannel(ReferenceChannel{SessionUID: uint64(n)})
			_ = ctx.ReferenceChannel()
		}(i)
	}
	wg.Wait()
}
