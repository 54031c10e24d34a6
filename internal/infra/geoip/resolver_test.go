package geoip

import (
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	calls int
	code  string
}

func (f *fakeReader) Country(net.IP) (*geoip2.Country, error) {
	f.calls++
	rec := &geoip2.Country{}
	rec.Country.IsoCode = f.code
	return rec, nil
}

func (f *fakeReader) Close() error { return nil }

func TestResolverCachesLookups(t *testing.T) {
	reader := &fakeReader{code: "NZ"}
	r := newResolver(reader)

	for i := 0; i < 3; i++ {
		code, err := r.CountryCode("203.0.113.7")
		require.NoError(t, err)
		assert.Equal(t, "NZ", code)
	}
	assert.Equal(t, 1, reader.calls)
}

func TestResolverSkipsPrivateAddresses(t *testing.T) {
	reader := &fakeReader{code: "NZ"}
	r := newResolver(reader)

	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "::1"} {
		code, err := r.CountryCode(ip)
		require.NoError(t, err)
		assert.Empty(t, code, ip)
	}
	assert.Zero(t, reader.calls)

	_, err := r.CountryCode("not-an-ip")
	assert.Error(t, err)
}

func TestOpenWithoutPathDisablesLookups(t *testing.T) {
	r, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = r.CountryCode("203.0.113.7")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, r.Close())
}
