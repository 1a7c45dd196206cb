package restretry_test

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/botsandus/restretry"
)

func TestDefaultPolicy_ShouldRetryStatus(t *testing.T) {
	p := restretry.DefaultPolicy()

	for _, test := range []struct {
		code  int
		retry bool
	}{
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{599, true},
		{408, true},
		{403, true},
		{200, false},
		{201, false},
		{301, false},
		{400, false},
		{401, false},
		{404, false},
		{429, false},
		{499, false},
		{600, false},
	} {
		t.Run(strconv.Itoa(test.code), func(t *testing.T) {
			assert.Equal(t, test.retry, p.ShouldRetryStatus(test.code))
		})
	}
}

func TestPolicy_CustomRetryableSet(t *testing.T) {
	p := &restretry.Policy{
		RetryableStatuses: map[int]bool{408: true},
		SuccessStatus:     200,
	}

	assert.False(t, p.ShouldRetryStatus(403), "403 is opt-in, not wired into the band check")
	assert.True(t, p.ShouldRetryStatus(408))
	assert.True(t, p.ShouldRetryStatus(503), "the 5xx band is always transient")
}

func TestPolicy_IsFatal(t *testing.T) {
	p := restretry.DefaultPolicy()

	assert.True(t, p.IsFatal(restretry.ErrTransportClosed))
	assert.True(t, p.IsFatal(fmt.Errorf("send: %w", restretry.ErrTransportClosed)))
	assert.True(t, p.IsFatal(&restretry.InvalidStateError{Err: errors.New("client shut down")}))

	assert.False(t, p.IsFatal(errors.New("connection reset by peer")))
	assert.False(t, p.IsFatal(nil))
}
