package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/probekit/metric"
	"github.com/hostdiag/probekit/probe"
)

type stubProbe struct {
	desc probe.Descriptor
}

func (p *stubProbe) Descriptor() probe.Descriptor {
	return p.desc
}

func (p *stubProbe) Run(_ context.Context) (metric.Sample, error) {
	return metric.Sample{Value: 1}, nil
}

func valid(id string) *stubProbe {
	return &stubProbe{desc: probe.Descriptor{
		ID:      id,
		Class:   probe.ClassCPUBound,
		Timeout: time.Second,
		Retry:   probe.RetryPolicy{MaxAttempts: 1},
	}}
}

func TestDescriptorValidate(t *testing.T) {
	cases := []struct {
		desc   string
		modify func(*probe.Descriptor)
		err    error
	}{
		{
			desc:   "valid descriptor",
			modify: func(*probe.Descriptor) {},
			err:    nil,
		},
		{
			desc:   "empty id",
			modify: func(d *probe.Descriptor) { d.ID = "" },
			err:    probe.ErrEmptyID,
		},
		{
			desc:   "id with reserved separator",
			modify: func(d *probe.Descriptor) { d.ID = "cpu:load" },
			err:    probe.ErrInvalidID,
		},
		{
			desc:   "invalid class",
			modify: func(d *probe.Descriptor) { d.Class = "gpu-bound" },
			err:    probe.ErrInvalidClass,
		},
		{
			desc:   "zero timeout",
			modify: func(d *probe.Descriptor) { d.Timeout = 0 },
			err:    probe.ErrInvalidTimeout,
		},
		{
			desc:   "zero retry attempts",
			modify: func(d *probe.Descriptor) { d.Retry.MaxAttempts = 0 },
			err:    probe.ErrInvalidAttempts,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			d := valid("cpu_load").desc
			tc.modify(&d)
			assert.Equal(t, tc.err, d.Validate())
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := probe.NewRegistry()

	require.Nil(t, reg.Register(valid("cpu_load")))

	err := reg.Register(valid("cpu_load"))
	assert.ErrorIs(t, err, probe.ErrDuplicateProbe)

	err = reg.Register(valid(""))
	assert.ErrorIs(t, err, probe.ErrEmptyID)
}

func TestRegistryGet(t *testing.T) {
	reg := probe.NewRegistry()
	require.Nil(t, reg.Register(valid("cpu_load")))

	p, err := reg.Get("cpu_load")
	require.Nil(t, err)
	assert.Equal(t, "cpu_load", p.Descriptor().ID)

	_, err = reg.Get("unknown")
	assert.ErrorIs(t, err, probe.ErrUnknownProbe)
}

func TestRegistryListOrder(t *testing.T) {
	reg := probe.NewRegistry()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		require.Nil(t, reg.Register(valid(id)))
	}

	descs := reg.List()
	require.Len(t, descs, len(ids))
	for i, d := range descs {
		assert.Equal(t, ids[i], d.ID)
	}
}

func TestTransient(t *testing.T) {
	assert.Nil(t, probe.MakeTransient(nil))

	err := probe.MakeTransient(assert.AnError)
	assert.True(t, probe.Transient(err))
	assert.ErrorIs(t, err, assert.AnError)

	assert.False(t, probe.Transient(assert.AnError))
}
