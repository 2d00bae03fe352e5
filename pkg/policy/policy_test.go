package policy_test

import (
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostdiag/probekit/pkg/policy"
	"github.com/hostdiag/probekit/probe"
)

func desc(id string, class probe.ResourceClass) probe.Descriptor {
	return probe.Descriptor{
		ID:      id,
		Class:   class,
		Timeout: time.Second,
		Retry:   probe.RetryPolicy{MaxAttempts: 1},
	}
}

func running(classes ...probe.ResourceClass) []probe.Descriptor {
	descs := make([]probe.Descriptor, 0, len(classes))
	for i, c := range classes {
		descs = append(descs, desc(fmt.Sprintf("p%d", i), c))
	}

	return descs
}

func TestNew(t *testing.T) {
	cases := []struct {
		desc    string
		budgets policy.Budgets
		err     error
	}{
		{
			desc:    "valid budgets",
			budgets: policy.Budgets{CPU: 2, IO: 4, Memory: 2},
			err:     nil,
		},
		{
			desc:    "zero cpu budget defaults to host parallelism",
			budgets: policy.Budgets{CPU: 0, IO: 1, Memory: 1},
			err:     nil,
		},
		{
			desc:    "negative cpu budget",
			budgets: policy.Budgets{CPU: -1, IO: 1, Memory: 1},
			err:     policy.ErrInvalidBudget,
		},
		{
			desc:    "zero io budget disables the class",
			budgets: policy.Budgets{CPU: 1, IO: 0, Memory: 1},
			err:     nil,
		},
		{
			desc:    "zero memory budget disables the class",
			budgets: policy.Budgets{CPU: 1, IO: 1, Memory: 0},
			err:     nil,
		},
		{
			desc:    "negative io budget",
			budgets: policy.Budgets{CPU: 1, IO: -1, Memory: 1},
			err:     policy.ErrInvalidBudget,
		},
		{
			desc:    "negative memory budget",
			budgets: policy.Budgets{CPU: 1, IO: 1, Memory: -1},
			err:     policy.ErrInvalidBudget,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := policy.New(tc.budgets)
			assert.Equal(t, tc.err, err)
		})
	}
}

func TestAdmit(t *testing.T) {
	pol, err := policy.New(policy.Budgets{CPU: 2, IO: 1, Memory: 1})
	require.Nil(t, err)

	cases := []struct {
		desc      string
		candidate probe.Descriptor
		running   []probe.Descriptor
		admitted  bool
	}{
		{
			desc:      "cpu probe with idle host",
			candidate: desc("c", probe.ClassCPUBound),
			running:   nil,
			admitted:  true,
		},
		{
			desc:      "cpu probe under budget",
			candidate: desc("c", probe.ClassCPUBound),
			running:   running(probe.ClassCPUBound),
			admitted:  true,
		},
		{
			desc:      "cpu probe at budget",
			candidate: desc("c", probe.ClassCPUBound),
			running:   running(probe.ClassCPUBound, probe.ClassCPUBound),
			admitted:  false,
		},
		{
			desc:      "io probe does not count against cpu budget",
			candidate: desc("c", probe.ClassCPUBound),
			running:   running(probe.ClassIOBound, probe.ClassCPUBound),
			admitted:  true,
		},
		{
			desc:      "io probe at budget",
			candidate: desc("i", probe.ClassIOBound),
			running:   running(probe.ClassIOBound),
			admitted:  false,
		},
		{
			desc:      "memory probe at budget",
			candidate: desc("m", probe.ClassMemoryBound),
			running:   running(probe.ClassMemoryBound),
			admitted:  false,
		},
		{
			desc:      "exclusive probe with idle host",
			candidate: desc("x", probe.ClassExclusive),
			running:   nil,
			admitted:  true,
		},
		{
			desc:      "exclusive probe with anything running",
			candidate: desc("x", probe.ClassExclusive),
			running:   running(probe.ClassIOBound),
			admitted:  false,
		},
		{
			desc:      "nothing runs beside an exclusive probe",
			candidate: desc("c", probe.ClassCPUBound),
			running:   running(probe.ClassExclusive),
			admitted:  false,
		},
		{
			desc:      "invalid class is never admitted",
			candidate: desc("bad", probe.ResourceClass("gpu-bound")),
			running:   nil,
			admitted:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.admitted, pol.Admit(tc.candidate, tc.running))
		})
	}
}

func TestAdmitDeterministic(t *testing.T) {
	pol, err := policy.New(policy.Budgets{CPU: 1, IO: 1, Memory: 1})
	require.Nil(t, err)

	candidate := desc("c", probe.ClassCPUBound)
	occupied := running(probe.ClassCPUBound)
	for i := 0; i < 100; i++ {
		assert.False(t, pol.Admit(candidate, occupied))
		assert.True(t, pol.Admit(candidate, nil))
	}
}

func TestZeroCPUBudgetUsesHostParallelism(t *testing.T) {
	pol, err := policy.New(policy.Budgets{CPU: 0, IO: 1, Memory: 1})
	require.Nil(t, err)

	occupied := make([]probe.Descriptor, 0, runtime.NumCPU())
	for i := 0; i < runtime.NumCPU()-1; i++ {
		occupied = append(occupied, desc(fmt.Sprintf("c%d", i), probe.ClassCPUBound))
	}
	assert.True(t, pol.Admit(desc("c", probe.ClassCPUBound), occupied))

	occupied = append(occupied, desc("last", probe.ClassCPUBound))
	assert.False(t, pol.Admit(desc("c", probe.ClassCPUBound), occupied))
}

func TestAdmissible(t *testing.T) {
	pol, err := policy.New(policy.Budgets{CPU: 1, IO: 1, Memory: 1})
	require.Nil(t, err)

	assert.True(t, pol.Admissible(desc("c", probe.ClassCPUBound)))
	assert.True(t, pol.Admissible(desc("i", probe.ClassIOBound)))
	assert.True(t, pol.Admissible(desc("x", probe.ClassExclusive)))
	assert.False(t, pol.Admissible(desc("bad", probe.ResourceClass("gpu-bound"))))

	// A zero budget disables the class outright.
	disabled, err := policy.New(policy.Budgets{CPU: 1, IO: 0, Memory: 0})
	require.Nil(t, err)

	assert.False(t, disabled.Admissible(desc("i", probe.ClassIOBound)))
	assert.False(t, disabled.Admissible(desc("m", probe.ClassMemoryBound)))
	assert.True(t, disabled.Admissible(desc("c", probe.ClassCPUBound)))
	assert.False(t, disabled.Admit(desc("i", probe.ClassIOBound), nil))
}
