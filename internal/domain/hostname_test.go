package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = TenantRules{
	Suffix:        ".cats",
	RegisterHost:  "register.cats",
	DashboardHost: "dashboard.cats",
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"kitty.cats", "kitty.cats"},
		{"Kitty.CATS", "kitty.cats"},
		{"kitty.cats:8080", "kitty.cats"},
		{"Kitty.CATS.:8080", "kitty.cats"},
		{" kitty.cats. ", "kitty.cats"},
		{"[::1]:3000", "::1"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHost(tt.in))
		})
	}
}

func TestTenantRules_Hosts(t *testing.T) {
	assert.True(t, testRules.IsTenantHost("kitty.cats"))
	assert.True(t, testRules.IsTenantHost("register.cats"))
	assert.False(t, testRules.IsTenantHost(".cats"))
	assert.False(t, testRules.IsTenantHost("kitty.dogs"))
	assert.False(t, testRules.IsTenantHost("localhost"))

	assert.True(t, testRules.IsReserved("register.cats"))
	assert.True(t, testRules.IsReserved("dashboard.cats"))
	assert.False(t, testRules.IsReserved("kitty.cats"))
}

func TestTenantRules_ValidateDomain(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "valid", in: "kitty.cats", want: "kitty.cats"},
		{name: "normalized", in: "Kitty.Cats", want: "kitty.cats"},
		{name: "subdomain", in: "blog.kitty.cats", want: "blog.kitty.cats"},
		{name: "hyphen", in: "cool-kitty.cats", want: "cool-kitty.cats"},
		{name: "empty", in: "", wantErr: true},
		{name: "suffix only", in: ".cats", wantErr: true},
		{name: "wrong suffix", in: "kitty.dogs", wantErr: true},
		{name: "no suffix", in: "kitty", wantErr: true},
		{name: "register portal", in: "register.cats", wantErr: true},
		{name: "dashboard portal", in: "Dashboard.cats", wantErr: true},
		{name: "leading hyphen", in: "-kitty.cats", wantErr: true},
		{name: "underscore", in: "kit_ty.cats", wantErr: true},
		{name: "empty label", in: "kitty..cats", wantErr: true},
		{name: "slash", in: "kitty/../x.cats", wantErr: true},
		{name: "too long", in: string(make([]byte, 250)) + ".cats", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testRules.ValidateDomain(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDomain))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
