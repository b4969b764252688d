package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountStatusCanTransition(t *testing.T) {
	cases := []struct {
		from    AccountStatus
		to      AccountStatus
		allowed bool
	}{
		{AccountStatusLoggedOut, AccountStatusActive, true},
		{AccountStatusLoggedOut, AccountStatusBanned, false},
		{AccountStatusActive, AccountStatusBanned, true},
		{AccountStatusActive, AccountStatusRateLimited, true},
		{AccountStatusActive, AccountStatusError, true},
		{AccountStatusRateLimited, AccountStatusActive, true},
		{AccountStatusRateLimited, AccountStatusBanned, false},
		{AccountStatusError, AccountStatusActive, true},
		// banned 无法恢复
		{AccountStatusBanned, AccountStatusActive, false},
		{AccountStatusBanned, AccountStatusRateLimited, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAccountStatusLogoutFromAnyState(t *testing.T) {
	for _, from := range []AccountStatus{
		AccountStatusLoggedOut,
		AccountStatusActive,
		AccountStatusRateLimited,
		AccountStatusBanned,
		AccountStatusError,
	} {
		assert.True(t, from.CanTransition(AccountStatusLoggedOut), "%s -> logged_out", from)
	}
}
