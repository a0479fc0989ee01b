package peers

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
)

type fakePeer struct {
	err    error
	closed bool
	calls  int
}

func (p *fakePeer) NotifyToolListChanged(ctx context.Context) error {
	p.calls++
	return p.err
}

func (p *fakePeer) Closed() bool { return p.closed }

func TestRegistry_BroadcastsToAllPeers(t *testing.T) {
	r := NewRegistry(testr.New(t))
	a, b := &fakePeer{}, &fakePeer{}
	r.Add(a)
	r.Add(b)

	r.NotifyToolListChanged(context.Background())

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_DropsClosedPeer(t *testing.T) {
	r := NewRegistry(testr.New(t))
	closed := &fakePeer{err: errors.New("transport closed"), closed: true}
	r.Add(closed)

	r.NotifyToolListChanged(context.Background())

	assert.Equal(t, 0, r.Len())
}

func TestRegistry_KeepsPeerOnOtherError(t *testing.T) {
	r := NewRegistry(testr.New(t))
	flaky := &fakePeer{err: errors.New("transient network blip")}
	r.Add(flaky)

	r.NotifyToolListChanged(context.Background())

	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveDropsPeer(t *testing.T) {
	r := NewRegistry(testr.New(t))
	id := r.Add(&fakePeer{})
	r.Remove(id)
	assert.Equal(t, 0, r.Len())
}
